package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/goldenlion52rus/foodgram/domain"
	"github.com/goldenlion52rus/foodgram/internal/api/presenters"
	"github.com/goldenlion52rus/foodgram/internal/utils"
	"github.com/goldenlion52rus/foodgram/pkg/subscription"
)

type (
	SubscriptionHandler interface {
		Subscribe(c *fiber.Ctx) error
		Unsubscribe(c *fiber.Ctx) error
		GetSubscriptions(c *fiber.Ctx) error
	}

	subscriptionHandler struct {
		subscriptionService subscription.SubscriptionService
	}
)

func NewSubscriptionHandler(subscriptionService subscription.SubscriptionService) SubscriptionHandler {
	return &subscriptionHandler{subscriptionService: subscriptionService}
}

// recipesLimit reads the optional truncation for the nested recipes slice.
// Zero means no truncation.
func recipesLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("recipes_limit", "0"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func (h *subscriptionHandler) Subscribe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.subscriptionService.Subscribe(c.Context(), userID, c.Params("id"), recipesLimit(c))
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedSubscribe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessSubscribe)
}

func (h *subscriptionHandler) Unsubscribe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.subscriptionService.Unsubscribe(c.Context(), userID, c.Params("id")); err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedUnsubscribe, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *subscriptionHandler) GetSubscriptions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(utils.PageSize())))
	if err != nil || limit < 1 {
		limit = utils.PageSize()
	}

	subscriptions, count, err := h.subscriptionService.GetSubscriptions(c.Context(), userID, page, limit, recipesLimit(c))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetSubscriptions, err)
	}

	next, previous := utils.PageLinks(c.BaseURL(), c.Path(), string(c.Request().URI().QueryString()), page, limit, count)
	return presenters.SuccessResponse(c, domain.Pagination{
		Count:    count,
		Next:     next,
		Previous: previous,
		Results:  subscriptions,
	}, fiber.StatusOK, domain.MessageSuccessGetSubscriptions)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
)

// SubscriptionHandler implements the channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}. Subscribing to
// your own channel is rejected before the store is touched.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)
	channelID := r.PathValue("channelId")

	if channelID == userID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	exists, err := h.Users.Exists(ctx, channelID)
	if err != nil {
		logger.Error("check channel exists", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle subscription")
		return
	}
	if !exists {
		respondError(ctx, w, http.StatusNotFound, "channel not found")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, userID, channelID)
	if err != nil {
		logger.Error("toggle subscription", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle subscription")
		return
	}

	message := "unsubscribed"
	if subscribed {
		message = "subscribed"
	}
	respondData(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}

// Subscribers handles GET /api/v1/subscriptions/u/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID := r.PathValue("channelId")

	if err := h.requireUser(w, r, channelID, "channel"); err != nil {
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		respondFromError(ctx, w, err, "unable to load subscribers")
		return
	}

	respondData(ctx, w, http.StatusOK, subscribers, "subscribers")
}

// SubscribedChannels handles GET /api/v1/subscriptions/c/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriberID := r.PathValue("subscriberId")

	if err := h.requireUser(w, r, subscriberID, "user"); err != nil {
		return
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		respondFromError(ctx, w, err, "unable to load subscribed channels")
		return
	}

	respondData(ctx, w, http.StatusOK, channels, "subscribed channels")
}

// requireUser writes the error response and reports it when the user id does
// not resolve.
func (h SubscriptionHandler) requireUser(w http.ResponseWriter, r *http.Request, id, kind string) error {
	ctx := r.Context()

	exists, err := h.Users.Exists(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Error("check user exists", "error", err, "userId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load "+kind)
		return err
	}
	if !exists {
		respondError(ctx, w, http.StatusNotFound, kind+" not found")
		return errMissingUser
	}
	return nil
}

var errMissingUser = errors.New("user not found")

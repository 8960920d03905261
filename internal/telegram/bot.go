package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/taskreminder/internal/delivery"
	"github.com/hray3182/taskreminder/internal/models"
	"github.com/hray3182/taskreminder/internal/pushworker"
)

// Actions is the part of the delivery service the bot drives.
type Actions interface {
	Acknowledge(ctx context.Context, deliveryID string, uc models.UserContext) error
	Dismiss(ctx context.Context, deliveryID string, uc models.UserContext) error
	Snooze(ctx context.Context, deliveryID string, uc models.UserContext, snoozeMinutes int) (*models.Delivery, error)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	subs     pushworker.SubscriptionStore
	actions  Actions
	worker   *pushworker.Worker
	platform *Platform
	location *time.Location
}

func NewBot(api *tgbotapi.BotAPI, subs pushworker.SubscriptionStore, actions Actions, worker *pushworker.Worker, platform *Platform, location *time.Location) *Bot {
	if location == nil {
		location = time.UTC
	}
	return &Bot{
		api:      api,
		subs:     subs,
		actions:  actions,
		worker:   worker,
		platform: platform,
		location: location,
	}
}

// NewAPI connects to the Bot API. An empty endpoint uses the public one.
func NewAPI(token, endpoint string) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.HandleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	switch update.Message.Command() {
	case "start", "help":
		b.handleStart(update.Message)
	default:
		b.sendMessage(update.Message.Chat.ID, "Unknown command. Use /start to see how to link this chat.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	text := fmt.Sprintf("Task reminders are delivered to this chat once it is linked to your account.\n\n"+
		"Register chat id %d as a telegram push subscription.", msg.Chat.ID)
	b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) HandleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.Message.Chat == nil {
		b.answerCallback(query.ID, "")
		return
	}
	chatID := query.Message.Chat.ID

	cb, err := parseCallback(query.Data)
	if err != nil {
		log.Printf("Ignoring callback from chat %d: %v", chatID, err)
		b.answerCallback(query.ID, "")
		return
	}

	sub, err := b.subs.FindSubscription(ctx, models.ChannelTelegram, strconv.FormatInt(chatID, 10))
	if err != nil {
		log.Printf("Failed to find subscription for chat %d: %v", chatID, err)
		b.answerCallbackWithAlert(query.ID, "Something went wrong, please try again")
		return
	}
	if sub == nil {
		b.answerCallbackWithAlert(query.ID, "This chat is not linked to an account")
		return
	}
	uc := sub.Context()

	switch cb.Action {
	case actionOpen:
		if err := b.worker.Click(ctx, sub, cb.Ref); err != nil {
			log.Printf("Failed to queue click for %s: %v", cb.Ref, err)
		}
		b.answerCallback(query.ID, "")

	case actionAck:
		if err := b.actions.Acknowledge(ctx, cb.Ref, uc); err != nil {
			b.answerActionError(query.ID, err, "Already handled")
			return
		}
		b.closeNotification(ctx, sub, cb.Ref)
		b.answerCallback(query.ID, "Done")

	case actionDismiss:
		if err := b.actions.Dismiss(ctx, cb.Ref, uc); err != nil {
			b.answerActionError(query.ID, err, "Already handled")
			return
		}
		b.closeNotification(ctx, sub, cb.Ref)
		b.answerCallback(query.ID, "Dismissed")

	case actionSnooze:
		next, err := b.actions.Snooze(ctx, cb.Ref, uc, cb.Minutes)
		if err != nil {
			b.answerActionError(query.ID, err, "Cannot snooze")
			return
		}
		b.closeNotification(ctx, sub, cb.Ref)
		b.answerCallback(query.ID, "Snoozed until "+next.RemindAt.In(b.location).Format("15:04"))
	}
}

func (b *Bot) closeNotification(ctx context.Context, sub *models.Subscription, tag string) {
	if err := b.platform.CloseNotification(ctx, sub, tag); err != nil {
		log.Printf("Failed to close notification %s: %v", tag, err)
	}
}

func (b *Bot) answerActionError(callbackID string, err error, invalidState string) {
	switch {
	case errors.Is(err, delivery.ErrInvalidState):
		b.answerCallbackWithAlert(callbackID, invalidState)
	case errors.Is(err, delivery.ErrNotFound):
		b.answerCallbackWithAlert(callbackID, "Reminder not found")
	case errors.Is(err, delivery.ErrInvalidArgument):
		b.answerCallbackWithAlert(callbackID, "Invalid request")
	default:
		log.Printf("Failed to handle reminder action: %v", err)
		b.answerCallbackWithAlert(callbackID, "Something went wrong, please try again")
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	answer := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(answer); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

func (b *Bot) answerCallbackWithAlert(callbackID string, text string) {
	answer := tgbotapi.NewCallbackWithAlert(callbackID, text)
	if _, err := b.api.Request(answer); err != nil {
		log.Printf("Failed to answer callback with alert: %v", err)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

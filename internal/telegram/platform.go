// Package telegram delivers reminder notifications to Telegram chats and
// turns inline keyboard presses back into reminder actions.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/taskreminder/internal/format"
	"github.com/hray3182/taskreminder/internal/models"
	"github.com/hray3182/taskreminder/internal/pushworker"
)

const defaultSnoozeMinutes = 10

// NotificationStore remembers the message sent per (subscription, tag).
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.PushedNotification) error
	GetNotification(ctx context.Context, subscriptionID, tag string) (*models.PushedNotification, error)
	DeleteNotification(ctx context.Context, subscriptionID, tag string) error
}

var errNoWindows = errors.New("telegram chats have no client windows")

// Platform implements pushworker.Platform over the Bot API. A tag maps to at
// most one live message per chat: showing it again deletes the old message.
type Platform struct {
	api   *tgbotapi.BotAPI
	notes NotificationStore
	Now   func() time.Time
}

func NewPlatform(api *tgbotapi.BotAPI, notes NotificationStore) *Platform {
	return &Platform{api: api, notes: notes, Now: time.Now}
}

func (p *Platform) ShowNotification(ctx context.Context, sub *models.Subscription, n *pushworker.NotificationIntent) error {
	chatID, err := chatIDOf(sub)
	if err != nil {
		return err
	}

	prev, err := p.notes.GetNotification(ctx, sub.ID, n.Tag)
	if err != nil {
		return fmt.Errorf("failed to load previous notification: %w", err)
	}
	if prev != nil {
		if messageID, err := strconv.Atoi(prev.MessageRef); err == nil {
			deleteMsg := tgbotapi.NewDeleteMessage(chatID, messageID)
			if _, err := p.api.Request(deleteMsg); err != nil {
				log.Printf("Failed to delete old reminder message %d: %v", messageID, err)
			}
		}
	}

	parsed := format.Notification(n.Title, n.Body)
	msg := tgbotapi.NewMessage(chatID, parsed.Text)
	msg.Entities = parsed.Entities
	msg.ReplyMarkup = reminderKeyboard(n)

	sent, err := p.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	return p.notes.SaveNotification(ctx, &models.PushedNotification{
		SubscriptionID: sub.ID,
		Tag:            n.Tag,
		MessageRef:     strconv.Itoa(sent.MessageID),
		TaskID:         n.Data.TaskID,
		DeliveryID:     n.Data.DeliveryID,
		CreatedAt:      p.Now(),
	})
}

func (p *Platform) NotificationData(ctx context.Context, sub *models.Subscription, tag string) (*pushworker.NotificationData, error) {
	n, err := p.notes.GetNotification(ctx, sub.ID, tag)
	if err != nil || n == nil {
		return nil, err
	}
	return &pushworker.NotificationData{TaskID: n.TaskID, DeliveryID: n.DeliveryID}, nil
}

// CloseNotification strips the keyboard from the message and forgets it.
// The text stays in the chat history.
func (p *Platform) CloseNotification(ctx context.Context, sub *models.Subscription, tag string) error {
	n, err := p.notes.GetNotification(ctx, sub.ID, tag)
	if err != nil || n == nil {
		return err
	}

	chatID, err := chatIDOf(sub)
	if err != nil {
		return err
	}
	if messageID, err := strconv.Atoi(n.MessageRef); err == nil {
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
		})
		if _, err := p.api.Request(edit); err != nil {
			log.Printf("Failed to clear keyboard on message %d: %v", messageID, err)
		}
	}

	return p.notes.DeleteNotification(ctx, sub.ID, tag)
}

func (p *Platform) Clients(ctx context.Context, sub *models.Subscription) ([]pushworker.Client, error) {
	return nil, nil
}

func (p *Platform) Navigate(ctx context.Context, sub *models.Subscription, clientID, url string) error {
	return errNoWindows
}

// OpenWindow sends the link as a URL button; the user's Telegram client opens it.
func (p *Platform) OpenWindow(ctx context.Context, sub *models.Subscription, url string) error {
	chatID, err := chatIDOf(sub)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, "Open the task to review this reminder.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Open task", url)),
	)
	if _, err := p.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send task link: %w", err)
	}
	return nil
}

func reminderKeyboard(n *pushworker.NotificationIntent) tgbotapi.InlineKeyboardMarkup {
	id := n.Data.DeliveryID
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Open", openData(n.Tag)),
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", ackData(id)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏰ %d min", defaultSnoozeMinutes), snoozeData(id, defaultSnoozeMinutes)),
			tgbotapi.NewInlineKeyboardButtonData("Dismiss", dismissData(id)),
		),
	)
}

func chatIDOf(sub *models.Subscription) (int64, error) {
	chatID, err := strconv.ParseInt(sub.Endpoint, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subscription %s has invalid chat id %q", sub.ID, sub.Endpoint)
	}
	return chatID, nil
}

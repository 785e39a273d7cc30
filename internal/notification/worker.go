package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"github.com/uarix/WashWise/internal/logger"
	"github.com/uarix/WashWise/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// availabilityJob carries one machine that just became available.
type availabilityJob struct {
	MachineID   string
	DisplayName string
}

// WorkerPool fans availability notifications out to push subscribers.
type WorkerPool struct {
	size    int
	jobs    chan availabilityJob
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
	log     *logger.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *logger.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan availabilityJob, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines. They stop when ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debugw("notification worker started", "worker", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.notifySubscribers(ctx, job)
		case <-ctx.Done():
			wp.log.Debugw("notification worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues a notification job for a machine that became available.
func (wp *WorkerPool) Dispatch(machineID, displayName string) {
	wp.jobs <- availabilityJob{MachineID: machineID, DisplayName: displayName}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan availabilityJob {
	return wp.jobs
}

// notifySubscribers fetches subscriptions targeting the machine and pushes to
// each of them.
func (wp *WorkerPool) notifySubscribers(ctx context.Context, job availabilityJob) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_targets st ON st.endpoint = push_subscriptions.endpoint").
		Where("st.machine_id = ?", job.MachineID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.Errorw("failed to fetch subscriptions", "machine", job.MachineID, "err", err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	label := job.DisplayName
	if label == "" {
		label = job.MachineID
	}
	payload := []byte(fmt.Sprintf("洗衣机 %s 已经可用！", label))

	wp.log.Infow("sending availability notifications", "machine", job.MachineID, "subscribers", len(subscriptions))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Errorw("failed to send notification", "endpoint", sub.Endpoint, "err", err)
		return
	}
	defer resp.Body.Close()

	// A 410 means the subscription is gone for good.
	if resp.StatusCode == http.StatusGone {
		wp.log.Infow("deleting expired subscription", "endpoint", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Errorw("failed to delete expired subscription", "endpoint", sub.Endpoint, "err", err)
		}
		if err := wp.db.WithContext(ctx).Where("endpoint = ?", sub.Endpoint).
			Delete(&model.SubscriptionTarget{}).Error; err != nil {
			wp.log.Errorw("failed to delete subscription targets", "endpoint", sub.Endpoint, "err", err)
		}
	}
}

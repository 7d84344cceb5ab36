package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"fixhub/config"
	"fixhub/models"
	"fixhub/services/booking"
	"fixhub/services/payment"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const TypePaymentReconcile = "payment:reconcile"

// reconcileDelay is how long after a verification timeout the deferred
// re-check runs.
const reconcileDelay = 2 * time.Minute

// ReconcilePayload identifies the transaction whose outcome was unresolved
// when verification polling exhausted its bounds.
type ReconcilePayload struct {
	TransactionID string `json:"transactionId"`
	BookingID     string `json:"bookingId"`
}

// NewReconcileClient builds the asynq client used to enqueue reconciliation
// tasks.
func NewReconcileClient() *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
}

// EnqueueReconcile schedules a deferred status re-check for a transaction
// whose verification run timed out.
func EnqueueReconcile(client *asynq.Client, transactionID, bookingID string) error {
	payload, err := json.Marshal(ReconcilePayload{TransactionID: transactionID, BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("failed to marshal reconcile payload: %w", err)
	}
	task := asynq.NewTask(TypePaymentReconcile, payload)
	if _, err := client.Enqueue(task, asynq.ProcessIn(reconcileDelay), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue reconcile task: %w", err)
	}
	log.Printf("[ReconcileWorker] ⏳ Scheduled re-check for transaction %s (booking %s)", transactionID, bookingID)
	return nil
}

// InitReconcileWorker runs the async worker in background.
func InitReconcileWorker(gateway payment.Gateway, mutator *booking.Mutator) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePaymentReconcile, handleReconcileTask(gateway, mutator))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[ReconcileWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReconcileWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReconcileWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleReconcileTask(gateway payment.Gateway, mutator *booking.Mutator) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ReconcilePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ReconcileHandler] 🔴 Invalid payload: %v", err)
			return err
		}

		resp, err := gateway.Status(ctx, p.TransactionID)
		if err != nil {
			log.Printf("[ReconcileHandler] ❌ Status re-check failed for %s: %v", p.TransactionID, err)
			return err
		}

		switch resp.Status {
		case models.TxCompleted, models.TxFailed:
			log.Printf("[ReconcileHandler] ✅ Transaction %s settled as %s", p.TransactionID, resp.Status)
			mutator.SettlePayment(p.BookingID)
			return nil
		default:
			// Still unresolved; let asynq retry with backoff.
			return fmt.Errorf("transaction %s still %s", p.TransactionID, resp.Status)
		}
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[ReconcileWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}

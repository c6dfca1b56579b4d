package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/talkingpet/backend/internal/booking"
)

// Notifier delivers one appointment reminder. The default implementation just
// logs; a mail or push sender satisfies the same interface.
type Notifier interface {
	Remind(ctx context.Context, a booking.Appointment) error
}

// LogNotifier writes reminders to the structured log.
type LogNotifier struct{ Log *zap.Logger }

func (n LogNotifier) Remind(_ context.Context, a booking.Appointment) error {
	n.Log.Info("appointment reminder",
		zap.String("appointment_id", a.ID),
		zap.String("user_id", a.UserID),
		zap.String("service", a.ServiceName),
		zap.String("date", a.Date),
		zap.String("time", a.Time))
	return nil
}

// Reminders runs a cron job that notifies owners about tomorrow's
// appointments.
type Reminders struct {
	repo     booking.Repository
	notifier Notifier
	log      *zap.Logger
	cron     *cron.Cron
	spec     string
	now      func() time.Time
}

func NewReminders(repo booking.Repository, notifier Notifier, log *zap.Logger, spec string) *Reminders {
	return &Reminders{
		repo:     repo,
		notifier: notifier,
		log:      log,
		cron:     cron.New(),
		spec:     spec,
		now:      time.Now,
	}
}

// Start registers the job and starts the cron loop. Stop it with Stop.
func (r *Reminders) Start() error {
	_, err := r.cron.AddFunc(r.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.Run(ctx)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Reminders) Stop() { r.cron.Stop() }

// Run sends reminders for tomorrow's pending and confirmed appointments.
// Exported so it can be triggered directly, outside the cron schedule.
func (r *Reminders) Run(ctx context.Context) {
	tomorrow := r.now().AddDate(0, 0, 1).Format("2006-01-02")
	appts, err := r.repo.ListUpcoming(ctx, tomorrow)
	if err != nil {
		r.log.Error("reminder sweep failed", zap.Error(err))
		return
	}
	sent := 0
	for _, a := range appts {
		if err := r.notifier.Remind(ctx, a); err != nil {
			r.log.Warn("reminder not delivered",
				zap.String("appointment_id", a.ID), zap.Error(err))
			continue
		}
		sent++
	}
	r.log.Info("reminder sweep finished",
		zap.String("date", tomorrow),
		zap.Int("appointments", len(appts)),
		zap.Int("sent", sent))
}

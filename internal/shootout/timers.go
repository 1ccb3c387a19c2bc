package shootout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// armTimer queues a turn deadline for role. The callback is a no-op unless
// seq still names the sub-turn in flight when it fires.
func (s *Session) armTimer(role Role, seq uint64) {
	sched, d := s.opts.Scheduler, s.opts.TurnTimeout
	name := fmt.Sprintf("turn:%s:%s:%d", s.id, role, seq)
	s.do("arm_timer", func(context.Context) error {
		t, err := sched.After(d, name, func() { s.timeoutFired(role, seq) })
		if err != nil {
			return fmt.Errorf("arm %s timer: %w", role, err)
		}
		s.timerMu.Lock()
		prev := s.timers[role]
		s.timers[role] = t
		s.timerMu.Unlock()
		if prev != nil {
			prev.Stop()
		}
		return nil
	})
}

func (s *Session) cancelTimer(role Role) {
	s.do("cancel_timer", func(context.Context) error {
		s.timerMu.Lock()
		t := s.timers[role]
		s.timers[role] = nil
		s.timerMu.Unlock()
		if t != nil {
			t.Stop()
		}
		return nil
	})
}

// schedule queues a deferred task that is not tied to a role. Callers guard
// fn with the session generation instead of cancelling it.
func (s *Session) schedule(name string, d time.Duration, fn func()) {
	sched := s.opts.Scheduler
	jobName := name + ":" + s.id
	s.do("schedule_"+name, func(context.Context) error {
		if _, err := sched.After(d, jobName, fn); err != nil {
			s.logger.Error("schedule_error", zap.String("task", name), zap.Error(err))
			return err
		}
		return nil
	})
}

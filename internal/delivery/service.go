package delivery

import "time"

// Service bundles the three delivery components for transports.
type Service struct {
	*Scheduler
	*QueryService
	*StateMachine
}

func NewService(repo Repository, tasks TaskFactProvider, prefs PreferenceStore) *Service {
	sched := NewScheduler(repo, tasks, prefs)
	return &Service{
		Scheduler:    sched,
		QueryService: NewQueryService(repo, sched),
		StateMachine: NewStateMachine(repo),
	}
}

// SetClock replaces the time source of every component.
func (s *Service) SetClock(now func() time.Time) {
	s.Scheduler.Now = now
	s.QueryService.Now = now
	s.StateMachine.Now = now
}

package scheduling

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/restart-clinic/scheduling/internal/interval"
	redisclient "github.com/restart-clinic/scheduling/internal/redis"
)

// memRepository is an in-memory Repository for service-level tests. It is
// deliberately unsynchronized beyond one mutex; the lockers above it are
// what the concurrency tests exercise.
type memRepository struct {
	mu           sync.Mutex
	providers    map[uuid.UUID]Provider
	services     map[uuid.UUID]Service
	slots        map[uuid.UUID]AvailabilitySlot
	appointments map[uuid.UUID]Appointment
	events       []EventLog
}

func newMemRepository() *memRepository {
	return &memRepository{
		providers:    make(map[uuid.UUID]Provider),
		services:     make(map[uuid.UUID]Service),
		slots:        make(map[uuid.UUID]AvailabilitySlot),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func (r *memRepository) addProvider(p Provider) Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.providers[p.ID] = p
	return p
}

func (r *memRepository) addService(s Service) Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.services[s.ID] = s
	return s
}

func (r *memRepository) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (r *memRepository) ListProviders(_ context.Context, activeOnly bool) ([]Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Provider
	for _, p := range r.providers {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepository) CreateSlot(_ context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cp := *s
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.slots[cp.ID] = cp
	return &cp, nil
}

func (r *memRepository) GetSlotByID(_ context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *memRepository) UpdateSlot(_ context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[s.ID]; !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	cp.UpdatedAt = time.Now()
	r.slots[cp.ID] = cp
	return &cp, nil
}

func (r *memRepository) DeleteSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(r.slots, id)
	return nil
}

func (r *memRepository) ListSlots(_ context.Context, providerID uuid.UUID, activeOnly bool) ([]AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AvailabilitySlot
	for _, s := range r.slots {
		if s.ProviderID != providerID {
			continue
		}
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (r *memRepository) FindOverlappingSlot(_ context.Context, providerID uuid.UUID, day int, start, end string, exclude uuid.UUID) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate := interval.Span[string]{Start: start, End: end}
	for _, s := range r.slots {
		if s.ProviderID != providerID || s.DayOfWeek != day || !s.Active || s.ID == exclude {
			continue
		}
		if interval.Overlaps(candidate, interval.Span[string]{Start: s.Start, End: s.End}) {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memRepository) CreateService(_ context.Context, s *Service) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cp := *s
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.services[cp.ID] = cp
	return &cp, nil
}

func (r *memRepository) GetServiceByID(_ context.Context, id uuid.UUID) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return &s, nil
}

func (r *memRepository) UpdateService(_ context.Context, s *Service) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[s.ID]; !ok {
		return nil, ErrServiceNotFound
	}
	cp := *s
	cp.UpdatedAt = time.Now()
	r.services[cp.ID] = cp
	return &cp, nil
}

func (r *memRepository) DeleteService(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; !ok {
		return ErrServiceNotFound
	}
	delete(r.services, id)
	return nil
}

func (r *memRepository) ListServices(_ context.Context, activeOnly bool) ([]Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Service
	for _, s := range r.services {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *memRepository) CountAppointmentsForService(_ context.Context, serviceID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.appointments {
		if a.ServiceID == serviceID {
			n++
		}
	}
	return n, nil
}

func (r *memRepository) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cp := *a
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.appointments[cp.ID] = cp
	return &cp, nil
}

func (r *memRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepository) FindOverlappingAppointment(_ context.Context, providerID uuid.UUID, start, end time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate := interval.Times(start, end)
	for _, a := range r.appointments {
		if a.ProviderID != providerID || !a.Status.Active() {
			continue
		}
		if interval.Overlaps(candidate, interval.Times(a.StartTime, a.EndTime)) {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *memRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, status *AppointmentStatus, upcomingOnly bool) ([]AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []AppointmentDetail
	for _, a := range r.appointments {
		if a.PatientID != patientID {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		if upcomingOnly && a.StartTime.Before(now) {
			continue
		}
		out = append(out, r.detail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *memRepository) ListAppointments(_ context.Context, status *AppointmentStatus) ([]AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AppointmentDetail
	for _, a := range r.appointments {
		if status != nil && a.Status != *status {
			continue
		}
		out = append(out, r.detail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *memRepository) detail(a Appointment) AppointmentDetail {
	d := AppointmentDetail{Appointment: a}
	if s, ok := r.services[a.ServiceID]; ok {
		d.ServiceName = s.Name
	}
	if p, ok := r.providers[a.ProviderID]; ok {
		d.ProviderName = p.Name
	}
	return d
}

func (r *memRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// memLocker serializes critical sections with real in-process mutexes so
// the race tests exercise genuine mutual exclusion.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memLocker) lockFor(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

func (l *memLocker) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	m := l.lockFor(key)
	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

func (l *memLocker) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	return l.withLock(ctx, "provider:"+providerID.String(), fn)
}

func (l *memLocker) WithAvailabilityLock(ctx context.Context, providerID uuid.UUID, day int, fn func(ctx context.Context) error) error {
	return l.withLock(ctx, "provider:"+providerID.String()+":day:"+strconv.Itoa(day), fn)
}

// busyLocker refuses every acquisition, standing in for a contended Redis
// lock whose wait budget ran out.
type busyLocker struct{}

func (busyLocker) WithProviderLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func (busyLocker) WithAvailabilityLock(context.Context, uuid.UUID, int, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

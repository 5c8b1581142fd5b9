package state

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrStationNotFound   = errors.New("station not found")
	ErrTeamExists        = errors.New("team already registered")
	ErrStationExists     = errors.New("station already exists")
	ErrDuplicateSequence = errors.New("station sequence order already taken")
	ErrEventConcluded    = errors.New("event has concluded")
	ErrUnknownEventKind  = errors.New("unknown event kind")
)

type teamEntry struct {
	mu     sync.Mutex
	team   domain.Team
	visits []domain.Visit
}

type stationEntry struct {
	mu      sync.Mutex
	station domain.Station
}

// Snapshot is a consistent copy of the full store contents, taken for
// read-only aggregation. Visits are keyed by team ID.
type Snapshot struct {
	Event        domain.Event
	Teams        []domain.Team
	Stations     []domain.Station
	VisitsByTeam map[string][]domain.Visit
}

// Store is the single authoritative in-memory state for one event. It is
// mutated only by applying domain events (plus the lifecycle cascades).
// Writes to the same entity are serialized through the entry lock; writes
// to different entities never block each other.
type Store struct {
	mu       sync.RWMutex
	event    domain.Event
	teams    map[string]*teamEntry
	stations map[string]*stationEntry

	appliedMu sync.Mutex
	applied   map[string]struct{}
}

func New(event domain.Event) *Store {
	if event.Phase == "" {
		event.Phase = domain.PhasePending
	}

	return &Store{
		event:    event,
		teams:    make(map[string]*teamEntry),
		stations: make(map[string]*stationEntry),
		applied:  make(map[string]struct{}),
	}
}

// RegisterTeam adds a team in waiting status. Teams cannot join once the
// event has concluded.
func (s *Store) RegisterTeam(team domain.Team) (domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.event.Phase.Terminal() {
		return domain.Team{}, ErrEventConcluded
	}
	if _, ok := s.teams[team.ID]; ok {
		return domain.Team{}, ErrTeamExists
	}

	if team.Status == "" {
		team.Status = domain.TeamWaiting
	}
	s.teams[team.ID] = &teamEntry{team: team}

	return team, nil
}

// AddStation adds a station, enforcing unique sequence order.
func (s *Store) AddStation(station domain.Station) (domain.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stations[station.ID]; ok {
		return domain.Station{}, ErrStationExists
	}
	for _, entry := range s.stations {
		if entry.station.Sequence == station.Sequence {
			return domain.Station{}, ErrDuplicateSequence
		}
	}

	s.stations[station.ID] = &stationEntry{station: station}

	return station, nil
}

// Apply mutates state from a single domain event. Applying the same event
// ID twice is a no-op, making the store idempotent under at-least-once
// delivery.
func (s *Store) Apply(evt domain.DomainEvent) error {
	if evt.ID != "" && !s.markApplied(evt.ID) {
		return nil
	}

	switch evt.Kind {
	case domain.EventTeamStatusChanged:
		return s.applyTeamStatus(evt)
	case domain.EventVisitRecorded:
		return s.applyVisitRecorded(evt)
	case domain.EventVisitClosed:
		return s.applyVisitClosed(evt)
	case domain.EventStationActiveToggled:
		return s.applyStationToggle(evt)
	default:
		return ErrUnknownEventKind
	}
}

func (s *Store) applyTeamStatus(evt domain.DomainEvent) error {
	entry, err := s.teamEntry(evt.TeamID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.team.Status = evt.TeamStatus
	switch evt.TeamStatus {
	case domain.TeamActive:
		if entry.team.StartedAt == nil {
			at := evt.OccurredAt
			entry.team.StartedAt = &at
		}
	case domain.TeamFinished:
		if entry.team.FinishedAt == nil {
			at := evt.OccurredAt
			entry.team.FinishedAt = &at
		}
		// Finishing ends any visit still in progress.
		closeOpenVisit(entry, "", evt.OccurredAt)
		entry.team.CurrentStationID = nil
	}

	return nil
}

func (s *Store) applyVisitRecorded(evt domain.DomainEvent) error {
	if _, err := s.stationEntry(evt.StationID); err != nil {
		return err
	}
	entry, err := s.teamEntry(evt.TeamID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// A new visit implicitly closes any prior open visit: the team leaves
	// station A the instant it checks in at station B.
	closeOpenVisit(entry, "", evt.OccurredAt)

	entry.visits = append(entry.visits, domain.Visit{
		TeamID:    evt.TeamID,
		StationID: evt.StationID,
		ArrivedAt: evt.OccurredAt,
	})
	stationID := evt.StationID
	entry.team.CurrentStationID = &stationID

	return nil
}

func (s *Store) applyVisitClosed(evt domain.DomainEvent) error {
	entry, err := s.teamEntry(evt.TeamID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// No open visit means nothing to do.
	if closeOpenVisit(entry, evt.StationID, evt.OccurredAt) {
		entry.team.CurrentStationID = nil
	}

	return nil
}

func closeOpenVisit(entry *teamEntry, stationID string, at time.Time) bool {
	for i := len(entry.visits) - 1; i >= 0; i-- {
		v := &entry.visits[i]
		if !v.Open() {
			continue
		}
		if stationID != "" && v.StationID != stationID {
			continue
		}
		left := at
		v.LeftAt = &left
		return true
	}
	return false
}

func (s *Store) applyStationToggle(evt domain.DomainEvent) error {
	entry, err := s.stationEntry(evt.StationID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.station.Active = evt.StationActive
	entry.mu.Unlock()

	return nil
}

// SetStationsActive toggles many stations at once. The operation validates
// every ID before mutating anything, so it is atomic from the caller's
// perspective: either all stations are updated, or none are and the unknown
// IDs are reported.
func (s *Store) SetStationsActive(ids []string, active bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, id := range ids {
		if _, ok := s.stations[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return missing, ErrStationNotFound
	}

	for _, id := range ids {
		entry := s.stations[id]
		entry.mu.Lock()
		entry.station.Active = active
		entry.mu.Unlock()
	}

	return nil, nil
}

// Event returns a copy of the event header.
func (s *Store) Event() domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.event
}

// Phase returns the current lifecycle phase.
func (s *Store) Phase() domain.EventPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.event.Phase
}

// SetPhase updates the lifecycle phase. Callers (the lifecycle machine)
// are responsible for transition legality.
func (s *Store) SetPhase(phase domain.EventPhase) {
	s.mu.Lock()
	s.event.Phase = phase
	s.mu.Unlock()
}

// MarkStarted sets the event start timestamp, exactly once.
func (s *Store) MarkStarted(at time.Time) {
	s.mu.Lock()
	if s.event.StartedAt == nil {
		s.event.StartedAt = &at
	}
	s.mu.Unlock()
}

// MarkEnded sets the event end timestamp, exactly once.
func (s *Store) MarkEnded(at time.Time) {
	s.mu.Lock()
	if s.event.EndedAt == nil {
		s.event.EndedAt = &at
	}
	s.mu.Unlock()
}

// CascadeStart moves every waiting team to active with the given start time.
func (s *Store) CascadeStart(at time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.teams {
		entry.mu.Lock()
		if entry.team.Status == domain.TeamWaiting {
			entry.team.Status = domain.TeamActive
			started := at
			entry.team.StartedAt = &started
		}
		entry.mu.Unlock()
	}
}

// CascadePauseUnfinished pauses every team that has not finished.
func (s *Store) CascadePauseUnfinished() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.teams {
		entry.mu.Lock()
		if entry.team.Status != domain.TeamFinished {
			entry.team.Status = domain.TeamPaused
		}
		entry.mu.Unlock()
	}
}

// Reset clears all team progress and deletes all recorded visits. The event
// timestamps are cleared as well. Destructive; guarded by the lifecycle
// machine.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.event.StartedAt = nil
	s.event.EndedAt = nil

	for _, entry := range s.teams {
		entry.mu.Lock()
		entry.team.Status = domain.TeamWaiting
		entry.team.CurrentStationID = nil
		entry.team.StartedAt = nil
		entry.team.FinishedAt = nil
		entry.visits = nil
		entry.mu.Unlock()
	}

	s.appliedMu.Lock()
	s.applied = make(map[string]struct{})
	s.appliedMu.Unlock()
}

// TeamCount returns the number of registered teams.
func (s *Store) TeamCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams)
}

// AnyTeamFinished reports whether at least one team has finished.
func (s *Store) AnyTeamFinished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.teams {
		entry.mu.Lock()
		finished := entry.team.Status == domain.TeamFinished
		entry.mu.Unlock()
		if finished {
			return true
		}
	}
	return false
}

// HasTeam reports whether the team is registered.
func (s *Store) HasTeam(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.teams[id]
	return ok
}

// TeamIDs returns the IDs of all registered teams.
func (s *Store) TeamIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.teams))
	for id := range s.teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// GetTeam returns a copy of the team's current state.
func (s *Store) GetTeam(id string) (domain.Team, error) {
	entry, err := s.teamEntry(id)
	if err != nil {
		return domain.Team{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.team, nil
}

// GetStation returns a copy of the station's current state.
func (s *Store) GetStation(id string) (domain.Station, error) {
	entry, err := s.stationEntry(id)
	if err != nil {
		return domain.Station{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.station, nil
}

// ListTeams returns all teams sorted by ID.
func (s *Store) ListTeams() []domain.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make([]domain.Team, 0, len(s.teams))
	for _, entry := range s.teams {
		entry.mu.Lock()
		teams = append(teams, entry.team)
		entry.mu.Unlock()
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })

	return teams
}

// ListStations returns all stations in sequence order.
func (s *Store) ListStations() []domain.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stations := make([]domain.Station, 0, len(s.stations))
	for _, entry := range s.stations {
		entry.mu.Lock()
		stations = append(stations, entry.station)
		entry.mu.Unlock()
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].Sequence < stations[j].Sequence })

	return stations
}

// TeamVisits returns a copy of the team's visit history in arrival order.
func (s *Store) TeamVisits(id string) ([]domain.Visit, error) {
	entry, err := s.teamEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	visits := make([]domain.Visit, len(entry.visits))
	copy(visits, entry.visits)

	return visits, nil
}

// Snapshot returns a consistent copy of the full store for aggregation.
// Individual event applications are never observable half-applied because
// each entry is copied under its own lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Event:        s.event,
		Teams:        make([]domain.Team, 0, len(s.teams)),
		Stations:     make([]domain.Station, 0, len(s.stations)),
		VisitsByTeam: make(map[string][]domain.Visit, len(s.teams)),
	}

	for id, entry := range s.teams {
		entry.mu.Lock()
		snap.Teams = append(snap.Teams, entry.team)
		visits := make([]domain.Visit, len(entry.visits))
		copy(visits, entry.visits)
		entry.mu.Unlock()
		snap.VisitsByTeam[id] = visits
	}
	sort.Slice(snap.Teams, func(i, j int) bool { return snap.Teams[i].ID < snap.Teams[j].ID })

	for _, entry := range s.stations {
		entry.mu.Lock()
		snap.Stations = append(snap.Stations, entry.station)
		entry.mu.Unlock()
	}
	sort.Slice(snap.Stations, func(i, j int) bool {
		return snap.Stations[i].Sequence < snap.Stations[j].Sequence
	})

	return snap
}

func (s *Store) teamEntry(id string) (*teamEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return entry, nil
}

func (s *Store) stationEntry(id string) (*stationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.stations[id]
	if !ok {
		return nil, ErrStationNotFound
	}
	return entry, nil
}

// markApplied records the event ID, returning false if it was seen before.
func (s *Store) markApplied(id string) bool {
	s.appliedMu.Lock()
	defer s.appliedMu.Unlock()

	if _, ok := s.applied[id]; ok {
		return false
	}
	s.applied[id] = struct{}{}

	return true
}

// Package summary builds the building-level daylight verdict and
// serializes it as the daylight_summary.json artifact.
package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/match"
	"github.com/ChicagoDave/daylight/pkg/metrics"
)

// NoRooms is the worst_room value of a summary without rooms.
const NoRooms = "N/A"

// runNamespace scopes run IDs so they cannot collide with other v5 UUIDs.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ChicagoDave/daylight/runs"))

// Room is the result of one grid with its room label attached.
type Room struct {
	GridID           string           `json:"grid_id"`
	RoomLabel        string           `json:"room_label"`
	Matched          bool             `json:"matched"`
	Points           int              `json:"points"`
	InsufficientData bool             `json:"insufficient_data"`
	MinPass          bool             `json:"min_pass"`
	AvgPass          bool             `json:"avg_pass"`
	RoomPass         bool             `json:"room_pass"`
	MinHours         int              `json:"min_hours"`
	MinAreaPct       float64          `json:"min_area_pct"`
	AvgHours         int              `json:"avg_hours"`
	AvgAreaPct       float64          `json:"avg_area_pct"`
	UDIHours         metrics.UDIHours `json:"udi_hours"`
	UDIPct           metrics.UDIPct   `json:"udi_pct"`
	SDAPct           float64          `json:"sda_pct"`
	ASEPct           float64          `json:"ase_pct"`
	Error            string           `json:"error,omitempty"`
}

// Score is the value worst_room is ranked by.
func (r *Room) Score() float64 {
	return math.Min(r.MinAreaPct, r.AvgAreaPct)
}

// Summary is the complete outcome of a run.
type Summary struct {
	RunID                 string            `json:"run_id"`
	GeneratedAt           time.Time         `json:"generated_at"`
	Thresholds            config.Thresholds `json:"thresholds"`
	Policy                config.Policy     `json:"policy"`
	OccupiedHours         int               `json:"occupied_hours"`
	Rooms                 []Room            `json:"rooms"`
	BuildingPass          bool              `json:"building_pass"`
	WorstRoom             string            `json:"worst_room"`
	InsufficientDataRooms []string          `json:"insufficient_data_rooms"`
	RoomsAnalysed         int               `json:"rooms_analysed"`
}

// Room returns the room whose label or grid ID equals name.
func (s *Summary) Room(name string) (*Room, bool) {
	for i := range s.Rooms {
		if s.Rooms[i].RoomLabel == name || s.Rooms[i].GridID == name {
			return &s.Rooms[i], true
		}
	}
	return nil, false
}

// Passing returns the number of rooms that pass both criteria.
func (s *Summary) Passing() int {
	n := 0
	for _, r := range s.Rooms {
		if r.RoomPass {
			n++
		}
	}
	return n
}

// Aggregator turns per-grid results into a Summary.
type Aggregator struct {
	Thresholds    config.Thresholds
	Policy        config.Policy
	OccupiedHours int
	// Now stamps generated_at. Defaults to time.Now.
	Now func() time.Time
}

// NewAggregator returns an Aggregator for a validated configuration.
func NewAggregator(c *config.Config, occupiedHours int) *Aggregator {
	return &Aggregator{
		Thresholds:    c.Thresholds,
		Policy:        c.Policy,
		OccupiedHours: occupiedHours,
	}
}

// Build combines results with their room assignments. Rooms are ordered
// by grid ID. A result without an assignment keeps its grid ID as label.
func (a *Aggregator) Build(results []metrics.Result, m *match.Result) (*Summary, error) {
	rooms := make([]Room, 0, len(results))
	for _, res := range results {
		label, matched := res.GridID, false
		if m != nil {
			if as, ok := m.Label(res.GridID); ok {
				label, matched = as.Label, as.Matched
			}
		}
		rooms = append(rooms, newRoom(res, label, matched))
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].GridID < rooms[j].GridID })

	s := &Summary{
		GeneratedAt:           a.now(),
		Thresholds:            a.Thresholds,
		Policy:                a.Policy,
		OccupiedHours:         a.OccupiedHours,
		Rooms:                 rooms,
		BuildingPass:          len(rooms) > 0,
		WorstRoom:             NoRooms,
		InsufficientDataRooms: []string{},
		RoomsAnalysed:         len(rooms),
	}

	var worst *Room
	for i := range rooms {
		r := &rooms[i]
		if !r.RoomPass {
			s.BuildingPass = false
		}
		if r.InsufficientData {
			s.InsufficientDataRooms = append(s.InsufficientDataRooms, r.RoomLabel)
		}
		if worst == nil || r.Score() < worst.Score() ||
			(r.Score() == worst.Score() && r.RoomLabel < worst.RoomLabel) {
			worst = r
		}
	}
	if worst != nil {
		s.WorstRoom = worst.RoomLabel
	}
	sort.Strings(s.InsufficientDataRooms)

	id, err := runID(s)
	if err != nil {
		return nil, err
	}
	s.RunID = id
	return s, nil
}

func (a *Aggregator) now() time.Time {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return now().UTC().Truncate(time.Second)
}

func newRoom(res metrics.Result, label string, matched bool) Room {
	return Room{
		GridID:           res.GridID,
		RoomLabel:        label,
		Matched:          matched,
		Points:           res.Points,
		InsufficientData: res.InsufficientData,
		MinPass:          res.MinPass,
		AvgPass:          res.AvgPass,
		RoomPass:         res.MinPass && res.AvgPass && !res.InsufficientData,
		MinHours:         res.MinHours,
		MinAreaPct:       res.MinAreaPct,
		AvgHours:         res.AvgHours,
		AvgAreaPct:       res.AvgAreaPct,
		UDIHours:         res.UDIHours,
		UDIPct:           res.UDIPct,
		SDAPct:           res.SDAPct,
		ASEPct:           res.ASEPct,
		Error:            res.Error,
	}
}

// runID derives a v5 UUID from everything in the summary except the
// timestamp, so identical inputs always share an ID.
func runID(s *Summary) (string, error) {
	data, err := json.Marshal(struct {
		Thresholds    config.Thresholds `json:"thresholds"`
		Policy        config.Policy     `json:"policy"`
		OccupiedHours int               `json:"occupied_hours"`
		Rooms         []Room            `json:"rooms"`
	}{s.Thresholds, s.Policy, s.OccupiedHours, s.Rooms})
	if err != nil {
		return "", fmt.Errorf("deriving run id: %w", err)
	}
	return uuid.NewSHA1(runNamespace, data).String(), nil
}

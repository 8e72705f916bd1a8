package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mandaatsync/internal/fixture"
	"github.com/roach88/mandaatsync/internal/ir"
)

// Scenario defines one reconciliation scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Now is the initial clock time.
	Now string `yaml:"now"`

	// BufferWindow and BatchSize configure the scheduler; defaults 5m and 100.
	BufferWindow string `yaml:"buffer_window,omitempty"`
	BatchSize    int    `yaml:"batch_size,omitempty"`

	Prefixes map[string]string `yaml:"prefixes,omitempty"`
	Graphs   []fixture.Graph   `yaml:"graphs"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden lists the graphs rendered into the golden snapshot.
	Golden []string `yaml:"golden,omitempty"`
}

// Step is one action of the scenario flow.
type Step struct {
	Reconcile []string `yaml:"reconcile,omitempty"`
	Enqueue   []string `yaml:"enqueue,omitempty"`
	Advance   string   `yaml:"advance,omitempty"`
	Tick      bool     `yaml:"tick,omitempty"`

	// Expect lists the outcomes of a reconcile or tick step, in order.
	Expect []string `yaml:"expect,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	Type string `yaml:"type"`

	Graph string        `yaml:"graph,omitempty"`
	Fact  *fixture.Fact `yaml:"fact,omitempty"`

	Severity string `yaml:"severity,omitempty"`
	Title    string `yaml:"title,omitempty"`

	// Count is the expected number; for notification assertions nil means
	// at least one.
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertPresent      = "present"
	AssertAbsent       = "absent"
	AssertNotification = "notification"
	AssertQueueLength  = "queue_length"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// Fixture returns the initial facts as a fixture document.
func (s *Scenario) Fixture() *fixture.Document {
	return &fixture.Document{Prefixes: s.Prefixes, Graphs: s.Graphs}
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if _, err := ir.ParseTime(s.Now); err != nil {
		return fmt.Errorf("now: %w", err)
	}
	if s.BufferWindow != "" {
		if _, err := time.ParseDuration(s.BufferWindow); err != nil {
			return fmt.Errorf("buffer_window: %w", err)
		}
	}
	if s.BatchSize < 0 {
		return errors.New("batch_size must not be negative")
	}
	if err := fixture.Validate(s.Fixture()); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	for i, st := range s.Steps {
		actions := 0
		if len(st.Reconcile) > 0 {
			actions++
		}
		if len(st.Enqueue) > 0 {
			actions++
		}
		if st.Advance != "" {
			actions++
			if _, err := time.ParseDuration(st.Advance); err != nil {
				return fmt.Errorf("steps[%d].advance: %w", i, err)
			}
		}
		if st.Tick {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("steps[%d]: exactly one of reconcile, enqueue, advance, tick is required", i)
		}
		if len(st.Expect) > 0 && len(st.Reconcile) == 0 && !st.Tick {
			return fmt.Errorf("steps[%d]: expect only applies to reconcile and tick", i)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertPresent, AssertAbsent:
			if a.Graph == "" || a.Fact == nil {
				return fmt.Errorf("assertions[%d]: %s requires graph and fact", i, a.Type)
			}
		case AssertNotification:
			if a.Graph == "" || a.Severity == "" {
				return fmt.Errorf("assertions[%d]: notification requires graph and severity", i)
			}
		case AssertQueueLength:
			if a.Count == nil {
				return fmt.Errorf("assertions[%d]: queue_length requires count", i)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}

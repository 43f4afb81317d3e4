package sequence

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

type fileSequence struct {
	Name        string            `yaml:"name"`
	Definitions map[string]string `yaml:"definitions"`
	Blocks      []fileBlock       `yaml:"blocks"`
}

type fileBlock struct {
	Duration float64     `yaml:"duration"`
	Events   []fileEvent `yaml:"events"`
}

type fileEvent struct {
	Event Event
}

func (f *fileEvent) UnmarshalYAML(value *yaml.Node) error {
	var head struct {
		Kind string `yaml:"kind"`
	}
	if err := value.Decode(&head); err != nil {
		return err
	}

	var err error
	switch head.Kind {
	case KindRF.String():
		var ev RFEvent
		err = value.Decode(&ev)
		f.Event = ev
	case KindTrapezoid.String():
		var ev TrapezoidGradient
		err = value.Decode(&ev)
		f.Event = ev
	case KindArbitrary.String():
		var ev ArbitraryGradient
		err = value.Decode(&ev)
		f.Event = ev
	case KindADC.String():
		var ev ADCEvent
		err = value.Decode(&ev)
		f.Event = ev
	case KindDelay.String():
		var ev DelayEvent
		err = value.Decode(&ev)
		f.Event = ev
	default:
		return fmt.Errorf("line %d: unsupported event kind %q: %w", value.Line, head.Kind, ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("line %d: %s event: %w", value.Line, head.Kind, err)
	}
	return nil
}

// Parse decodes a YAML sequence description and validates it.
func Parse(data []byte) (*Sequence, error) {
	var fs fileSequence
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("could not parse sequence: %w", err)
	}

	seq := &Sequence{
		Name:        fs.Name,
		Definitions: fs.Definitions,
		Blocks:      make([]Block, len(fs.Blocks)),
	}
	for idx, fb := range fs.Blocks {
		events := make([]Event, len(fb.Events))
		for j, fe := range fb.Events {
			events[j] = fe.Event
		}
		seq.Blocks[idx] = Block{Duration: fb.Duration, Events: events}
	}

	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// Load reads a YAML sequence description from path.
func Load(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	seq, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("[sequence] Loaded %q from %s: %d blocks, %g s", seq.Name, path, len(seq.Blocks), seq.Duration())
	return seq, nil
}

func (a *Axis) UnmarshalYAML(value *yaml.Node) error {
	return a.UnmarshalText([]byte(value.Value))
}

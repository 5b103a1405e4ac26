package protocol

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// profileFile is the YAML layout of a profile file:
//
//	name: v2
//	disconnect_delay: 5m
//	characteristics:
//	  - uuid: 7a2623ff-bd92-4c13-be9f-7023aa4ecb85
//	    field: power
//	  - uuid: 6aa46711-a29d-4f8a-88e2-044ca1fd03ff
//	    field: set_temperature
//	    write_response: true
//	  - uuid: 2a00
//	    field: name
//	    notify: false
type profileFile struct {
	Name            string               `yaml:"name"`
	DisconnectDelay time.Duration        `yaml:"disconnect_delay"`
	Characteristics []characteristicFile `yaml:"characteristics"`
}

type characteristicFile struct {
	UUID          string `yaml:"uuid"`
	Field         Field  `yaml:"field"`
	Kind          Kind   `yaml:"kind"`
	Width         int    `yaml:"width"`
	Signed        bool   `yaml:"signed"`
	Notify        *bool  `yaml:"notify"` // defaults to true
	WriteResponse bool   `yaml:"write_response"`
}

// ParseProfile decodes a YAML profile document.
func ParseProfile(data []byte) (*Profile, error) {
	var f profileFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}

	chars := make([]Characteristic, 0, len(f.Characteristics))
	for _, c := range f.Characteristics {
		notify := true
		if c.Notify != nil {
			notify = *c.Notify
		}
		chars = append(chars, Characteristic{
			UUID:              c.UUID,
			Field:             c.Field,
			Kind:              c.Kind,
			Width:             c.Width,
			Signed:            c.Signed,
			Notify:            notify,
			WriteWithResponse: c.WriteResponse,
		})
	}
	return NewProfile(f.Name, f.DisconnectDelay, chars)
}

// LoadProfile reads a YAML profile file from disk.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

package yolo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary maps class ids to labels; the index is the class id.
type Vocabulary []string

// DefaultVocabulary is the class list of the helmet model: "h" (helmet) and
// "nh" (no helmet).
var DefaultVocabulary = Vocabulary{"h", "nh"}

// Label returns the name of a class id.
func (v Vocabulary) Label(classID int) string {
	if classID >= 0 && classID < len(v) && v[classID] != "" {
		return v[classID]
	}
	return fmt.Sprintf("class%d", classID)
}

// LoadVocabulary reads the "names" entry of an ultralytics dataset file. Both
// the list form and the id-to-name mapping form are accepted.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary decodes the YAML document in data.
func ParseVocabulary(data []byte) (Vocabulary, error) {
	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("decode names list: %w", err)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("vocabulary has no names")
		}
		return Vocabulary(names), nil

	case yaml.MappingNode:
		var byID map[int]string
		if err := doc.Names.Decode(&byID); err != nil {
			return nil, fmt.Errorf("decode names mapping: %w", err)
		}
		if len(byID) == 0 {
			return nil, fmt.Errorf("vocabulary has no names")
		}
		size := 0
		for id := range byID {
			if id < 0 {
				return nil, fmt.Errorf("negative class id %d", id)
			}
			size = max(size, id+1)
		}
		vocab := make(Vocabulary, size)
		for id, name := range byID {
			vocab[id] = name
		}
		return vocab, nil

	default:
		return nil, fmt.Errorf("vocabulary file has no names entry")
	}
}

package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Category struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// CategorySet is the ordered, closed list of labels a run classifies into.
// It is not modified after construction.
type CategorySet struct {
	categories []Category
}

func NewCategorySet(categories ...Category) CategorySet {
	copied := make([]Category, len(categories))
	copy(copied, categories)

	return CategorySet{categories: copied}
}

// Categories returns a copy of the categories in definition order.
func (s CategorySet) Categories() []Category {
	copied := make([]Category, len(s.categories))
	copy(copied, s.categories)

	return copied
}

func (s CategorySet) Len() int {
	return len(s.categories)
}

func DefaultCategorySet() CategorySet {
	return NewCategorySet(
		Category{Key: "TECHNOLOGY", Description: "Software, hardware, computing, the internet and technical products"},
		Category{Key: "BUSINESS", Description: "Companies, markets, management, industry and commerce"},
		Category{Key: "FINANCE", Description: "Banking, investing, personal finance, currencies and the economy"},
		Category{Key: "HEALTH", Description: "Medicine, wellness, fitness, nutrition and healthcare"},
		Category{Key: "EDUCATION", Description: "Schools, universities, learning, teaching and training"},
		Category{Key: "ENTERTAINMENT", Description: "Movies, music, games, television, celebrities and the arts"},
		Category{Key: "SPORTS", Description: "Athletes, teams, matches, tournaments and sporting events"},
		Category{Key: "POLITICS", Description: "Government, elections, policy, law and international relations"},
		Category{Key: "SCIENCE", Description: "Research, discoveries, nature, space and the physical sciences"},
		Category{Key: "OTHER", Description: "Content that does not fit any other category"},
	)
}

// LoadCategorySet reads a YAML mapping of IDENTIFIER: description from path.
func LoadCategorySet(path string) (CategorySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CategorySet{}, fmt.Errorf("%w: failed to read categories file: %v", ErrIO, err)
	}

	return ParseCategorySet(data)
}

// ParseCategorySet decodes a YAML mapping, keeping the order the keys appear in.
func ParseCategorySet(data []byte) (CategorySet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return CategorySet{}, fmt.Errorf("%w: failed to parse categories: %v", ErrConfiguration, err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return CategorySet{}, fmt.Errorf("%w: no categories defined", ErrConfiguration)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return CategorySet{}, fmt.Errorf("%w: categories must be a mapping of IDENTIFIER: description", ErrConfiguration)
	}

	categories := make([]Category, 0, len(root.Content)/2)

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]

		if valueNode.Kind != yaml.ScalarNode {
			return CategorySet{}, fmt.Errorf("%w: description of category %q (line %d) must be a string", ErrConfiguration, keyNode.Value, valueNode.Line)
		}

		categories = append(categories, Category{
			Key:         strings.TrimSpace(keyNode.Value),
			Description: strings.TrimSpace(valueNode.Value),
		})
	}

	if len(categories) == 0 {
		return CategorySet{}, fmt.Errorf("%w: no categories defined", ErrConfiguration)
	}

	return CategorySet{categories: categories}, nil
}

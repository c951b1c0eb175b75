package insight

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrUnknownField      = errors.New("field not editable for entity type")
	ErrMissingEntityName = errors.New("entity name is required")
)

type EntityType string

const (
	EntityPlayer EntityType = "player"
	EntityTeam1  EntityType = "team1"
	EntityTeam2  EntityType = "team2"
	EntityVenue  EntityType = "venue"
)

type Field string

const (
	FieldInsights        Field = "insights"
	FieldStrengths       Field = "strengths"
	FieldWeaknesses      Field = "weaknesses"
	FieldCharacteristics Field = "characteristics"
)

var editableFields = map[EntityType]map[Field]struct{}{
	EntityPlayer: {FieldInsights: {}, FieldStrengths: {}, FieldWeaknesses: {}},
	EntityTeam1:  {FieldInsights: {}, FieldStrengths: {}, FieldWeaknesses: {}},
	EntityTeam2:  {FieldInsights: {}, FieldStrengths: {}, FieldWeaknesses: {}},
	EntityVenue:  {FieldInsights: {}, FieldCharacteristics: {}},
}

// Edit replaces one list of one entity with user-supplied values.
type Edit struct {
	EntityType EntityType `json:"entity_type"`
	EntityName string     `json:"entity_name"`
	Field      Field      `json:"field"`
	Values     Lines      `json:"values"`
}

// EditKey identifies the list an edit targets.
type EditKey struct {
	EntityType EntityType
	EntityName string
	Field      Field
}

func (e Edit) Key() EditKey {
	return EditKey{EntityType: e.EntityType, EntityName: e.EntityName, Field: e.Field}
}

func (e Edit) Validate() error {
	fields, ok := editableFields[e.EntityType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntityType, e.EntityType)
	}
	if _, ok := fields[e.Field]; !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, e.EntityType, e.Field)
	}
	if e.EntityType == EntityPlayer && strings.TrimSpace(e.EntityName) == "" {
		return ErrMissingEntityName
	}
	return nil
}

// Overlay holds user edits apart from the generated payload. Later edits to
// the same key replace earlier ones.
type Overlay struct {
	order  []EditKey
	values map[EditKey]Lines
}

func NewOverlay(edits ...Edit) Overlay {
	o := Overlay{values: make(map[EditKey]Lines, len(edits))}
	for _, edit := range edits {
		o.Set(edit)
	}
	return o
}

func (o *Overlay) Set(edit Edit) {
	if o.values == nil {
		o.values = make(map[EditKey]Lines)
	}
	key := edit.Key()
	if _, exists := o.values[key]; !exists {
		o.order = append(o.order, key)
	}
	o.values[key] = edit.Values.Clone()
}

func (o Overlay) Len() int {
	return len(o.order)
}

// Edits returns the overlay in first-set order.
func (o Overlay) Edits() []Edit {
	out := make([]Edit, 0, len(o.order))
	for _, key := range o.order {
		out = append(out, Edit{
			EntityType: key.EntityType,
			EntityName: key.EntityName,
			Field:      key.Field,
			Values:     o.values[key].Clone(),
		})
	}
	return out
}

// Apply returns a copy of p with the overlay merged in. p is never modified.
func (o Overlay) Apply(p *Payload) *Payload {
	if p == nil {
		return nil
	}
	out := p.Clone()
	for _, key := range o.order {
		values := o.values[key].Clone()
		switch key.EntityType {
		case EntityPlayer:
			player := out.Players[key.EntityName]
			setListField(&player.Insights, &player.Strengths, &player.Weaknesses, key.Field, values)
			out.Players[key.EntityName] = player
		case EntityTeam1:
			setListField(&out.Team1.Insights, &out.Team1.Strengths, &out.Team1.Weaknesses, key.Field, values)
		case EntityTeam2:
			setListField(&out.Team2.Insights, &out.Team2.Strengths, &out.Team2.Weaknesses, key.Field, values)
		case EntityVenue:
			if out.Venue == nil {
				out.Venue = &VenueInsight{}
			}
			switch key.Field {
			case FieldInsights:
				out.Venue.Insights = values
			case FieldCharacteristics:
				out.Venue.Characteristics = values
			}
		}
	}
	out.Normalize()
	return out
}

func setListField(insights, strengths, weaknesses *Lines, field Field, values Lines) {
	switch field {
	case FieldInsights:
		*insights = values
	case FieldStrengths:
		*strengths = values
	case FieldWeaknesses:
		*weaknesses = values
	}
}

package protocol

import "fmt"

// Field names the state attribute a characteristic feeds.
type Field string

const (
	FieldPower             Field = "power"
	FieldMode              Field = "mode"
	FieldSetTemperature    Field = "set_temperature"
	FieldActualTemperature Field = "actual_temperature"
	FieldWaterLevel        Field = "water_level"
	FieldPumpWatts         Field = "pump_watts"
	FieldClean             Field = "clean"
	FieldName              Field = "name"
)

// Kind selects the decode rule applied to a characteristic payload.
type Kind string

const (
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindMode   Kind = "mode"
	KindString Kind = "string"
)

// fieldKinds pins every field to the only kind that can carry it.
var fieldKinds = map[Field]Kind{
	FieldPower:             KindBool,
	FieldMode:              KindMode,
	FieldSetTemperature:    KindInt,
	FieldActualTemperature: KindInt,
	FieldWaterLevel:        KindInt,
	FieldPumpWatts:         KindInt,
	FieldClean:             KindBool,
	FieldName:              KindString,
}

// KindOf returns the decode kind required for f.
func KindOf(f Field) (Kind, error) {
	k, ok := fieldKinds[f]
	if !ok {
		return "", fmt.Errorf("unknown field %q", f)
	}
	return k, nil
}

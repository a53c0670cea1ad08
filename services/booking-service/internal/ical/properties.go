package ical

import (
	"strconv"
	"strings"
)

const paramsSuffix = "_PARAMS"

// RawProperty is one content line inside a component: the bare upper-cased
// name, the unparsed parameter string (without the leading ';') and the raw
// value.
type RawProperty struct {
	Name   string
	Params string
	Value  string
}

// Properties is the ordered multimap collected for one VEVENT before it is
// projected into a model.EventRecord. Repeated names keep every instance in
// first-seen order; unknown properties survive untouched.
type Properties struct {
	order  []string
	byName map[string][]RawProperty
	alarms []string
}

func newProperties() *Properties {
	return &Properties{byName: map[string][]RawProperty{}}
}

func (p *Properties) add(prop RawProperty) {
	if _, ok := p.byName[prop.Name]; !ok {
		p.order = append(p.order, prop.Name)
	}
	p.byName[prop.Name] = append(p.byName[prop.Name], prop)
}

func (p *Properties) addAlarmTrigger(value string) {
	p.alarms = append(p.alarms, value)
}

// Empty reports whether no property was collected.
func (p *Properties) Empty() bool {
	return len(p.order) == 0
}

// First returns the first instance of name.
func (p *Properties) First(name string) (RawProperty, bool) {
	props := p.byName[strings.ToUpper(name)]
	if len(props) == 0 {
		return RawProperty{}, false
	}
	return props[0], true
}

// All returns every instance of name in the order seen.
func (p *Properties) All(name string) []RawProperty {
	return p.byName[strings.ToUpper(name)]
}

// AlarmTriggers returns the raw TRIGGER values of nested VALARM blocks.
func (p *Properties) AlarmTriggers() []string {
	return p.alarms
}

// Keys lists the flattened key view: NAME for the first instance, NAME_1,
// NAME_2... for repeats, and <key>_PARAMS wherever a parameter string exists.
func (p *Properties) Keys() []string {
	var keys []string
	for _, name := range p.order {
		for i, prop := range p.byName[name] {
			key := name
			if i > 0 {
				key = name + "_" + strconv.Itoa(i)
			}
			keys = append(keys, key)
			if prop.Params != "" {
				keys = append(keys, key+paramsSuffix)
			}
		}
	}
	return keys
}

// Lookup resolves a key from Keys to its value (or parameter string).
func (p *Properties) Lookup(key string) (string, bool) {
	key = strings.ToUpper(key)
	wantParams := false
	if strings.HasSuffix(key, paramsSuffix) {
		wantParams = true
		key = strings.TrimSuffix(key, paramsSuffix)
	}
	prop, ok := p.resolve(key)
	if !ok {
		return "", false
	}
	if wantParams {
		return prop.Params, prop.Params != ""
	}
	return prop.Value, true
}

func (p *Properties) resolve(key string) (RawProperty, bool) {
	if props := p.byName[key]; len(props) > 0 {
		return props[0], true
	}
	idx := strings.LastIndexByte(key, '_')
	if idx <= 0 {
		return RawProperty{}, false
	}
	n, err := strconv.Atoi(key[idx+1:])
	if err != nil || n < 1 {
		return RawProperty{}, false
	}
	props := p.byName[key[:idx]]
	if n >= len(props) {
		return RawProperty{}, false
	}
	return props[n], true
}

// splitContentLine splits "NAME;PARAMS:VALUE" on the first colon that is not
// inside a quoted parameter value, then separates the name from its
// parameters at the first ';'.
func splitContentLine(line string) (RawProperty, bool) {
	colon := -1
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ':':
			if !quoted {
				colon = i
			}
		}
		if colon >= 0 {
			break
		}
	}
	if colon <= 0 {
		return RawProperty{}, false
	}
	token, value := line[:colon], line[colon+1:]
	name, params := token, ""
	if semi := strings.IndexByte(token, ';'); semi >= 0 {
		name, params = token[:semi], token[semi+1:]
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return RawProperty{}, false
	}
	return RawProperty{Name: name, Params: params, Value: value}, true
}

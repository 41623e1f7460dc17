package domain

import (
	"errors"
	"fmt"
	"time"

	"aircheck/internal/timeparse"
)

// ErrSchemaViolation means a required record field is missing or has the
// wrong type in a raw mapping.
var ErrSchemaViolation = errors.New("schema violation")

// ProgramFromMapping builds a Program from a generic string-keyed mapping.
// A string or numeric datetime value is run through the temporal normalizer;
// storage-layer identity keys ("_id") are discarded. Optional fields default
// to nil, never to sentinel values.
func ProgramFromMapping(data map[string]any) (Program, error) {
	var p Program
	var err error

	if p.ID, err = requireInt(data, "id"); err != nil {
		return Program{}, err
	}
	if p.Name, err = requireString(data, "name"); err != nil {
		return Program{}, err
	}
	if p.EpisodeID, err = requireInt(data, "episode_id"); err != nil {
		return Program{}, err
	}
	if p.Datetime, err = requireDatetime(data, "datetime"); err != nil {
		return Program{}, err
	}

	if p.StationID, err = optString(data, "station_id"); err != nil {
		return Program{}, err
	}
	if p.URL, err = plainString(data, "url"); err != nil {
		return Program{}, err
	}
	if p.Description, err = plainString(data, "description"); err != nil {
		return Program{}, err
	}
	if p.Information, err = plainString(data, "information"); err != nil {
		return Program{}, err
	}
	if p.Performers, err = stringList(data, "performers"); err != nil {
		return Program{}, err
	}
	if p.Copyright, err = plainString(data, "copyright"); err != nil {
		return Program{}, err
	}
	if p.EpisodeName, err = plainString(data, "episode_name"); err != nil {
		return Program{}, err
	}
	if p.Duration, err = optInt(data, "duration"); err != nil {
		return Program{}, err
	}
	if p.ASCIIName, err = optString(data, "ascii_name"); err != nil {
		return Program{}, err
	}
	if p.Guests, err = stringList(data, "guests"); err != nil {
		return Program{}, err
	}
	if p.ImageURL, err = optString(data, "image_url"); err != nil {
		return Program{}, err
	}
	if p.IsVideo, err = plainBool(data, "is_video"); err != nil {
		return Program{}, err
	}
	if raw, ok := data["raw_data"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return Program{}, fmt.Errorf("%w: field raw_data is %T, want mapping", ErrSchemaViolation, raw)
		}
		p.RawData = m
	}
	return p, nil
}

// ToMapping converts the program to its generic mapping form. Every schema
// key is present; absent optional fields are nil. With serialize set, the
// datetime is rendered in the canonical string form (minute precision).
func (p Program) ToMapping(serialize bool) map[string]any {
	var dt any = p.Datetime
	if serialize {
		dt = p.Datetime.Format(timeparse.Layout)
	}
	return map[string]any{
		"id":           p.ID,
		"station_id":   fromPtr(p.StationID),
		"name":         p.Name,
		"url":          p.URL,
		"description":  p.Description,
		"information":  p.Information,
		"performers":   fromList(p.Performers),
		"copyright":    p.Copyright,
		"episode_id":   p.EpisodeID,
		"episode_name": p.EpisodeName,
		"datetime":     dt,
		"duration":     fromPtr(p.Duration),
		"ascii_name":   fromPtr(p.ASCIIName),
		"guests":       fromList(p.Guests),
		"image_url":    fromPtr(p.ImageURL),
		"is_video":     p.IsVideo,
		"raw_data":     p.RawData,
	}
}

// QueryMapping is the mapping form used by the search engine: the serialized
// schema minus the opaque raw_data passthrough.
func (p Program) QueryMapping() map[string]any {
	m := p.ToMapping(false)
	delete(m, "raw_data")
	return m
}

// StationFromMapping builds a Station from a generic string-keyed mapping,
// discarding storage-layer identity keys.
func StationFromMapping(data map[string]any) (Station, error) {
	var s Station
	var err error

	if s.ID, err = requireString(data, "id"); err != nil {
		return Station{}, err
	}
	if s.PlatformID, err = requireString(data, "platform_id"); err != nil {
		return Station{}, err
	}
	if s.Name, err = requireString(data, "name"); err != nil {
		return Station{}, err
	}
	if s.ASCIIName, err = optString(data, "ascii_name"); err != nil {
		return Station{}, err
	}
	if s.URL, err = optString(data, "url"); err != nil {
		return Station{}, err
	}
	if s.ImageURL, err = optString(data, "image_url"); err != nil {
		return Station{}, err
	}
	return s, nil
}

// ToMapping converts the station to its generic mapping form.
func (s Station) ToMapping() map[string]any {
	return map[string]any{
		"id":          s.ID,
		"platform_id": s.PlatformID,
		"name":        s.Name,
		"ascii_name":  fromPtr(s.ASCIIName),
		"url":         fromPtr(s.URL),
		"image_url":   fromPtr(s.ImageURL),
	}
}

func requireInt(data map[string]any, key string) (int64, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: field %s is required", ErrSchemaViolation, key)
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, fmt.Errorf("%w: field %s is %T, want integer", ErrSchemaViolation, key, v)
	}
	return n, nil
}

func requireString(data map[string]any, key string) (string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: field %s is required", ErrSchemaViolation, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %s is %T, want string", ErrSchemaViolation, key, v)
	}
	return s, nil
}

func requireDatetime(data map[string]any, key string) (time.Time, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("%w: field %s is required", ErrSchemaViolation, key)
	}
	t, err := timeparse.Normalize(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %s: %v", ErrSchemaViolation, key, err)
	}
	return t, nil
}

func plainString(data map[string]any, key string) (string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %s is %T, want string", ErrSchemaViolation, key, v)
	}
	return s, nil
}

func plainBool(data map[string]any, key string) (bool, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: field %s is %T, want bool", ErrSchemaViolation, key, v)
	}
	return b, nil
}

func optString(data map[string]any, key string) (*string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %s is %T, want string", ErrSchemaViolation, key, v)
	}
	return &s, nil
}

func optInt(data map[string]any, key string) (*int, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := asInt64(v)
	if !ok {
		return nil, fmt.Errorf("%w: field %s is %T, want integer", ErrSchemaViolation, key, v)
	}
	i := int(n)
	return &i, nil
}

// stringList reads an optional list of names. An empty list means the same
// as absent: nil distinguishes "unknown" from nothing at all.
func stringList(data map[string]any, key string) ([]string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, nil
	}
	var out []string
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field %s element is %T, want string", ErrSchemaViolation, key, e)
			}
			out = append(out, s)
		}
	default:
		return nil, fmt.Errorf("%w: field %s is %T, want list", ErrSchemaViolation, key, v)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func fromPtr[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromList(l []string) any {
	if l == nil {
		return nil
	}
	return l
}

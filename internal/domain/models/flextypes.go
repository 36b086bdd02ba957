// internal/domain/models/flextypes.go
package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FlexTime is a point in time decoded from whatever shape the mobile app
// wrote: a BSON date, a BSON timestamp, an RFC 3339 string, epoch seconds
// or milliseconds, or an exported {seconds, nanoseconds} document.
// Anything else (including null) decodes to the zero FlexTime.
type FlexTime struct {
	Time  time.Time
	Valid bool
}

// NewFlexTime wraps t as a valid FlexTime.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{Time: t, Valid: true}
}

// Ptr returns the time or nil when not valid.
func (f FlexTime) Ptr() *time.Time {
	if !f.Valid {
		return nil
	}
	t := f.Time
	return &t
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (f *FlexTime) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*f = FlexTime{}
	rv := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.DateTime:
		f.set(rv.Time())
	case bsontype.Timestamp:
		sec, _ := rv.Timestamp()
		f.set(time.Unix(int64(sec), 0))
	case bsontype.String:
		f.parseString(rv.StringValue())
	case bsontype.Int32:
		f.setEpoch(float64(rv.Int32()))
	case bsontype.Int64:
		f.setEpoch(float64(rv.Int64()))
	case bsontype.Double:
		f.setEpoch(rv.Double())
	case bsontype.EmbeddedDocument:
		doc := rv.Document()
		secs, ok := numberAt(doc, "seconds", "_seconds")
		if !ok {
			return nil
		}
		nanos, _ := numberAt(doc, "nanoseconds", "_nanoseconds")
		f.set(time.Unix(int64(secs), int64(nanos)))
	}
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler. Invalid times are
// written as null.
func (f FlexTime) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !f.Valid {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(f.Time)
}

func (f *FlexTime) set(t time.Time) {
	f.Time = t.UTC()
	f.Valid = true
}

// setEpoch treats values above 1e11 as milliseconds.
func (f *FlexTime) setEpoch(n float64) {
	if n <= 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return
	}
	if n > 1e11 {
		f.set(time.UnixMilli(int64(n)))
		return
	}
	f.set(time.Unix(int64(n), 0))
}

func (f *FlexTime) parseString(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			f.set(t)
			return
		}
	}
}

func numberAt(doc bson.Raw, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, err := doc.LookupErr(k)
		if err != nil {
			continue
		}
		switch v.Type {
		case bsontype.Int32:
			return float64(v.Int32()), true
		case bsontype.Int64:
			return float64(v.Int64()), true
		case bsontype.Double:
			return v.Double(), true
		}
	}
	return 0, false
}

// FlexInt is a whole number decoded from a BSON int32, int64, double or
// numeric string. The mobile app writes JavaScript numbers, so counts and
// durations may arrive as doubles; those are rounded to the nearest
// integer. Null and any other type decode to 0.
type FlexInt int64

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (n *FlexInt) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*n = 0
	rv := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Int32:
		*n = FlexInt(rv.Int32())
	case bsontype.Int64:
		*n = FlexInt(rv.Int64())
	case bsontype.Double:
		n.setFloat(rv.Double())
	case bsontype.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(rv.StringValue()), 64); err == nil {
			n.setFloat(f)
		}
	}
	return nil
}

func (n *FlexInt) setFloat(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return
	}
	*n = FlexInt(math.Round(f))
}

// Int returns the value as an int.
func (n FlexInt) Int() int { return int(n) }

// Int64Ptr returns the value as *int64, or nil for a nil FlexInt.
func (n *FlexInt) Int64Ptr() *int64 {
	if n == nil {
		return nil
	}
	v := int64(*n)
	return &v
}

// DocID is a document _id that may be stored as an ObjectID or a string.
type DocID string

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (d *DocID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		*d = DocID(rv.ObjectID().Hex())
	case bsontype.String:
		*d = DocID(rv.StringValue())
	case bsontype.Int32:
		*d = DocID(fmt.Sprint(rv.Int32()))
	case bsontype.Int64:
		*d = DocID(fmt.Sprint(rv.Int64()))
	default:
		*d = ""
	}
	return nil
}

// MarshalBSONValue writes hex ObjectIDs back as ObjectIDs. An empty id
// is written as a fresh ObjectID so inserts never collide on "".
func (d DocID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if d == "" {
		return bson.MarshalValue(primitive.NewObjectID())
	}
	if oid, err := primitive.ObjectIDFromHex(string(d)); err == nil {
		return bson.MarshalValue(oid)
	}
	return bson.MarshalValue(string(d))
}

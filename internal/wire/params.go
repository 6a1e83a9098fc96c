package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

func float32FromBits(b uint32) float32 { return math.Float32frombits(b) }
func float64FromBits(b uint64) float64 { return math.Float64frombits(b) }

// ParamF32Value builds an f32 typed parameter.
func ParamF32Value(v float32) TypedParam {
	var tp TypedParam
	tp.Tag = ParamF32
	binary.LittleEndian.PutUint32(tp.Value[:4], math.Float32bits(v))
	return tp
}

// ParamF64Value builds an f64 typed parameter.
func ParamF64Value(v float64) TypedParam {
	var tp TypedParam
	tp.Tag = ParamF64
	binary.LittleEndian.PutUint64(tp.Value[:8], math.Float64bits(v))
	return tp
}

// ParamI8Value builds an i8 typed parameter.
func ParamI8Value(v int8) TypedParam {
	var tp TypedParam
	tp.Tag = ParamI8
	tp.Value[0] = byte(v)
	return tp
}

// ParamI16Value builds an i16 typed parameter.
func ParamI16Value(v int16) TypedParam {
	var tp TypedParam
	tp.Tag = ParamI16
	binary.LittleEndian.PutUint16(tp.Value[:2], uint16(v))
	return tp
}

// MaxWideStringChars is the widest wide-string value that fits the
// 256-byte value union alongside a nul terminator (spec §3: wide-string
// <=127 chars).
const MaxWideStringChars = 127

// ParamWideStringValue builds a wide-string (UTF-16) typed parameter.
func ParamWideStringValue(s string) (TypedParam, error) {
	var tp TypedParam
	tp.Tag = ParamWideString
	units := utf16.Encode([]rune(s))
	if len(units) > MaxWideStringChars {
		return tp, fmt.Errorf("wire: wide string too long (%d > %d)", len(units), MaxWideStringChars)
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(tp.Value[i*2:i*2+2], u)
	}
	return tp, nil
}

// WideString decodes the value as a nul-terminated UTF-16LE string.
func (p TypedParam) WideString() string {
	units := make([]uint16, 0, MaxWideStringChars)
	for i := 0; i+1 < len(p.Value); i += 2 {
		u := binary.LittleEndian.Uint16(p.Value[i : i+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

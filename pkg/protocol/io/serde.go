package io

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var ErrUnsupported = errors.New("type has no wire form")

// Marshalable and Unmarshalable let a type take over its own encoding. A
// type implementing one must implement both, Marshal on the value and
// Unmarshal on the pointer.
type Marshalable interface {
	Marshal(p *Buffer) error
}

type Unmarshalable interface {
	Unmarshal(p *Buffer) error
}

var (
	marshalableType   = reflect.TypeOf((*Marshalable)(nil)).Elem()
	unmarshalableType = reflect.TypeOf((*Unmarshalable)(nil)).Elem()
)

type hookResult struct {
	hooked bool
	err    error
}

var hookCache sync.Map

// hooks reports whether t encodes itself. Receiver mistakes only show up at
// runtime, so they are reported here instead of silently falling back to
// reflection.
func hooks(t reflect.Type) (bool, error) {
	if cached, ok := hookCache.Load(t); ok {
		result := cached.(hookResult)
		return result.hooked, result.err
	}

	result := checkHooks(t)
	hookCache.Store(t, result)
	return result.hooked, result.err
}

func checkHooks(t reflect.Type) hookResult {
	pointer := reflect.PointerTo(t)
	marshal := pointer.Implements(marshalableType)
	unmarshal := pointer.Implements(unmarshalableType)
	if !marshal && !unmarshal {
		return hookResult{}
	}

	var err error
	switch {
	case !marshal:
		err = fmt.Errorf("%s has Unmarshal but no Marshal", t)
	case !unmarshal:
		err = fmt.Errorf("%s has Marshal but no Unmarshal", t)
	case !t.Implements(marshalableType):
		err = fmt.Errorf("%s.Marshal must have a value receiver", t)
	case t.Implements(unmarshalableType):
		err = fmt.Errorf("%s.Unmarshal must have a pointer receiver", t)
	}
	return hookResult{hooked: err == nil, err: err}
}

// Fixed-width values, keyed by kind.
type scalar struct {
	put func(p *Buffer, v reflect.Value)
	get func(p *Buffer, v reflect.Value) bool
}

var scalars = map[reflect.Kind]scalar{
	reflect.Bool: {
		put: func(p *Buffer, v reflect.Value) { p.PutBool(v.Bool()) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetBool()
			v.SetBool(value)
			return ok
		},
	},
	reflect.Uint8: {
		put: func(p *Buffer, v reflect.Value) { p.PutByte(byte(v.Uint())) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetByte()
			v.SetUint(uint64(value))
			return ok
		},
	},
	reflect.Int8: {
		put: func(p *Buffer, v reflect.Value) { p.PutByte(byte(v.Int())) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetByte()
			v.SetInt(int64(int8(value)))
			return ok
		},
	},
	reflect.Uint16: {
		put: func(p *Buffer, v reflect.Value) { p.PutUint16(uint16(v.Uint())) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetUint16()
			v.SetUint(uint64(value))
			return ok
		},
	},
	reflect.Int16: {
		put: func(p *Buffer, v reflect.Value) { p.PutInt16(int16(v.Int())) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetInt16()
			v.SetInt(int64(value))
			return ok
		},
	},
	reflect.Uint32: {
		put: func(p *Buffer, v reflect.Value) { p.PutUint32(uint32(v.Uint())) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetUint32()
			v.SetUint(uint64(value))
			return ok
		},
	},
	reflect.Int32: {
		put: func(p *Buffer, v reflect.Value) { p.PutInt32(int32(v.Int())) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetInt32()
			v.SetInt(int64(value))
			return ok
		},
	},
	reflect.Uint64: {
		put: func(p *Buffer, v reflect.Value) { p.PutUint64(v.Uint()) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetUint64()
			v.SetUint(value)
			return ok
		},
	},
	reflect.Int64: {
		put: func(p *Buffer, v reflect.Value) { p.PutUint64(uint64(v.Int())) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetUint64()
			v.SetInt(int64(value))
			return ok
		},
	},
	reflect.Float32: {
		put: func(p *Buffer, v reflect.Value) { p.PutFloat(float32(v.Float())) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetFloat()
			v.SetFloat(float64(value))
			return ok
		},
	},
	reflect.String: {
		put: func(p *Buffer, v reflect.Value) { p.PutString(v.String()) },
		get: func(p *Buffer, v reflect.Value) bool {
			value, ok := p.GetString()
			v.SetString(value)
			return ok
		},
	},
}

func encode(p *Buffer, v reflect.Value) error {
	t := v.Type()

	hooked, err := hooks(t)
	if err != nil {
		return err
	}
	if hooked {
		return v.Interface().(Marshalable).Marshal(p)
	}

	if s, ok := scalars[t.Kind()]; ok {
		s.put(p, v)
		return nil
	}

	switch t.Kind() {
	case reflect.Slice:
		// Slices carry their length; arrays do not.
		p.PutUint32(uint32(v.Len()))
		fallthrough
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			err := encode(p, v.Index(i))
			if err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			err := encode(p, v.Field(i))
			if err != nil {
				return fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
			}
		}
	default:
		return fmt.Errorf("%s: %w", t, ErrUnsupported)
	}

	return nil
}

// decode fills v, which must be settable.
func decode(p *Buffer, v reflect.Value) error {
	t := v.Type()

	hooked, err := hooks(t)
	if err != nil {
		return err
	}
	if hooked {
		return v.Addr().Interface().(Unmarshalable).Unmarshal(p)
	}

	if s, ok := scalars[t.Kind()]; ok {
		if !s.get(p, v) {
			return fmt.Errorf("%s: %w", t, ErrShortBuffer)
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			err := decode(p, v.Index(i))
			if err != nil {
				return err
			}
		}
	case reflect.Slice:
		count, ok := p.GetUint32()
		if !ok {
			return fmt.Errorf("%s length: %w", t, ErrShortBuffer)
		}
		// Every element takes at least one byte.
		if int64(count) > int64(p.Len()) {
			return fmt.Errorf("%s claims %d elements with %d bytes left: %w", t, count, p.Len(), ErrShortBuffer)
		}

		slice := reflect.MakeSlice(t, int(count), int(count))
		for i := 0; i < int(count); i++ {
			err := decode(p, slice.Index(i))
			if err != nil {
				return err
			}
		}
		v.Set(slice)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			err := decode(p, v.Field(i))
			if err != nil {
				return fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
			}
		}
	default:
		return fmt.Errorf("%s: %w", t, ErrUnsupported)
	}

	return nil
}

// Marshal appends each value to p in order.
func Marshal(p *Buffer, values ...interface{}) error {
	for _, value := range values {
		err := encode(p, reflect.ValueOf(value))
		if err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal reads into each target in order. Targets must be non-nil
// pointers.
func Unmarshal(p *Buffer, targets ...interface{}) error {
	for _, target := range targets {
		v := reflect.ValueOf(target)
		if v.Kind() != reflect.Pointer || v.IsNil() {
			return fmt.Errorf("cannot decode into %T", target)
		}

		err := decode(p, v.Elem())
		if err != nil {
			return err
		}
	}
	return nil
}

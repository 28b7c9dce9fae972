package wire

import (
	"encoding/binary"

	"github.com/objcore/kernel/kerr"
)

// NamedObject is one entry of the process start-up stack's object table:
// a short name and the handle a Process Builder assigned it in the new
// process's namespace (conventionally in, out, err, file, net, process,
// but spec.md §6 does not enforce those names).
type NamedObject struct {
	Name   string
	Handle uint32
}

// StartupImage is the mandatory layout spec.md §6 requires every process a
// Process Builder spawns to receive on its initial stack:
//
//	[u16 objects_count][{u16 name_len, name_bytes, u32 handle} x N]
//	[u16 args_count][{u16 len, bytes} x N]
//	[u16 env_count][{u16 klen, key, u16 vlen, val} x N]
type StartupImage struct {
	Objects []NamedObject
	Args    [][]byte
	Env     map[string][]byte
}

func putU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// Encode serializes the image in the mandatory byte order.
func (img StartupImage) Encode() ([]byte, error) {
	if len(img.Objects) > 0xFFFF || len(img.Args) > 0xFFFF || len(img.Env) > 0xFFFF {
		return nil, kerr.New("startup.Encode", kerr.InvalidData)
	}
	var buf []byte
	buf = putU16(buf, uint16(len(img.Objects)))
	for _, o := range img.Objects {
		if len(o.Name) > 0xFFFF {
			return nil, kerr.New("startup.Encode", kerr.InvalidData)
		}
		buf = putU16(buf, uint16(len(o.Name)))
		buf = append(buf, o.Name...)
		buf = putU32(buf, o.Handle)
	}
	buf = putU16(buf, uint16(len(img.Args)))
	for _, a := range img.Args {
		if len(a) > 0xFFFF {
			return nil, kerr.New("startup.Encode", kerr.InvalidData)
		}
		buf = putU16(buf, uint16(len(a)))
		buf = append(buf, a...)
	}
	buf = putU16(buf, uint16(len(img.Env)))
	for k, v := range img.Env {
		if len(k) > 0xFFFF || len(v) > 0xFFFF {
			return nil, kerr.New("startup.Encode", kerr.InvalidData)
		}
		buf = putU16(buf, uint16(len(k)))
		buf = append(buf, k...)
		buf = putU16(buf, uint16(len(v)))
		buf = append(buf, v...)
	}
	return buf, nil
}

// DecodeStartupImage parses a buffer produced by Encode. Map iteration
// order means a round trip will not reproduce the original env byte
// layout, but the decoded key/value pairs are identical.
func DecodeStartupImage(data []byte) (StartupImage, error) {
	var img StartupImage
	r := cursor{data: data}

	objCount, err := r.u16()
	if err != nil {
		return img, err
	}
	img.Objects = make([]NamedObject, 0, objCount)
	for i := uint16(0); i < objCount; i++ {
		name, err := r.lenPrefixed16()
		if err != nil {
			return img, err
		}
		h, err := r.u32()
		if err != nil {
			return img, err
		}
		img.Objects = append(img.Objects, NamedObject{Name: string(name), Handle: h})
	}

	argCount, err := r.u16()
	if err != nil {
		return img, err
	}
	img.Args = make([][]byte, 0, argCount)
	for i := uint16(0); i < argCount; i++ {
		a, err := r.lenPrefixed16()
		if err != nil {
			return img, err
		}
		img.Args = append(img.Args, a)
	}

	envCount, err := r.u16()
	if err != nil {
		return img, err
	}
	img.Env = make(map[string][]byte, envCount)
	for i := uint16(0); i < envCount; i++ {
		k, err := r.lenPrefixed16()
		if err != nil {
			return img, err
		}
		v, err := r.lenPrefixed16()
		if err != nil {
			return img, err
		}
		img.Env[string(k)] = v
	}
	return img, nil
}

type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) u16() (uint16, error) {
	if c.pos+2 > len(c.data) {
		return 0, kerr.New("startup.Decode", kerr.InvalidData)
	}
	v := binary.LittleEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if c.pos+4 > len(c.data) {
		return 0, kerr.New("startup.Decode", kerr.InvalidData)
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) lenPrefixed16() ([]byte, error) {
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	if c.pos+int(n) > len(c.data) {
		return nil, kerr.New("startup.Decode", kerr.InvalidData)
	}
	out := append([]byte(nil), c.data[c.pos:c.pos+int(n)]...)
	c.pos += int(n)
	return out, nil
}

package modelconfig

import (
	"strconv"
	"strings"
)

// WildcardDim is the dimension value meaning "any size".
const WildcardDim = -1

// DataType is the element type of a tensor.
type DataType string

const (
	TypeInvalid DataType = "TYPE_INVALID"
	TypeBool    DataType = "TYPE_BOOL"
	TypeUint8   DataType = "TYPE_UINT8"
	TypeUint16  DataType = "TYPE_UINT16"
	TypeUint32  DataType = "TYPE_UINT32"
	TypeUint64  DataType = "TYPE_UINT64"
	TypeInt8    DataType = "TYPE_INT8"
	TypeInt16   DataType = "TYPE_INT16"
	TypeInt32   DataType = "TYPE_INT32"
	TypeInt64   DataType = "TYPE_INT64"
	TypeFP16    DataType = "TYPE_FP16"
	TypeFP32    DataType = "TYPE_FP32"
	TypeFP64    DataType = "TYPE_FP64"
	TypeString  DataType = "TYPE_STRING"
	TypeBF16    DataType = "TYPE_BF16"
)

var dataTypeInfo = map[DataType]struct {
	size     int64
	protocol string
}{
	TypeBool:   {1, "BOOL"},
	TypeUint8:  {1, "UINT8"},
	TypeUint16: {2, "UINT16"},
	TypeUint32: {4, "UINT32"},
	TypeUint64: {8, "UINT64"},
	TypeInt8:   {1, "INT8"},
	TypeInt16:  {2, "INT16"},
	TypeInt32:  {4, "INT32"},
	TypeInt64:  {8, "INT64"},
	TypeFP16:   {2, "FP16"},
	TypeFP32:   {4, "FP32"},
	TypeFP64:   {8, "FP64"},
	TypeString: {0, "BYTES"},
	TypeBF16:   {2, "BF16"},
}

// Valid reports whether dt names a real element type.
func (dt DataType) Valid() bool {
	_, ok := dataTypeInfo[dt]
	return ok
}

// IsFixedSize reports whether elements of dt have a fixed byte size.
func (dt DataType) IsFixedSize() bool { return dt != TypeString }

// ByteSize returns the size of one element of dt, or 0 when unknown or
// variable.
func (dt DataType) ByteSize() int64 { return dataTypeInfo[dt].size }

// ProtocolString returns the wire name of dt ("FP32", "BYTES", ...).
func (dt DataType) ProtocolString() string {
	if info, ok := dataTypeInfo[dt]; ok {
		return info.protocol
	}
	return "<invalid>"
}

// DataTypeFromProtocol maps a wire name back to a DataType. Unknown names
// return TypeInvalid.
func DataTypeFromProtocol(s string) DataType {
	for dt, info := range dataTypeInfo {
		if info.protocol == s {
			return dt
		}
	}
	return TypeInvalid
}

// ElementCount returns the number of elements in a shape, or -1 when any
// dimension is a wildcard.
func ElementCount(dims []int64) int64 {
	var cnt int64
	for i, d := range dims {
		if d == WildcardDim {
			return -1
		}
		if i == 0 {
			cnt = d
		} else {
			cnt *= d
		}
	}
	return cnt
}

// ByteSize returns the byte size of a tensor of dt with shape dims, or -1
// when it cannot be determined.
func ByteSize(dt DataType, dims []int64) int64 {
	sz := dt.ByteSize()
	if sz == 0 {
		return -1
	}
	cnt := ElementCount(dims)
	if cnt == -1 {
		return -1
	}
	return cnt * sz
}

// BatchByteSize is ByteSize for a batch. An empty shape with a non-zero
// batch size is sized as shape [batchSize].
func BatchByteSize(batchSize int64, dt DataType, dims []int64) int64 {
	if len(dims) == 0 {
		return batchSize * dt.ByteSize()
	}
	bs := ByteSize(dt, dims)
	if bs == -1 {
		return -1
	}
	return max(1, batchSize) * bs
}

// CompareDims reports whether two shapes are identical. Wildcards compare
// literally.
func CompareDims(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CompareDimsWithWildcard reports whether two shapes match, letting a
// wildcard in either shape match any value.
func CompareDimsWithWildcard(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != WildcardDim && b[i] != WildcardDim && a[i] != b[i] {
			return false
		}
	}
	return true
}

// DimsString renders a shape as "[d0,d1,...]".
func DimsString(dims []int64) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.FormatInt(d, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

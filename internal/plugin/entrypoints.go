package plugin

import (
	"reflect"

	"modelcore/internal/status"
	"modelcore/pkg/backendapi"
)

// Entrypoints is the capability table of a backend library. It is built
// once by Bind and never re-resolved. Optional entrypoints the library does
// not export are nil.
type Entrypoints struct {
	BackendInitialize       backendapi.BackendInitializeFunc
	BackendFinalize         backendapi.BackendFinalizeFunc
	BackendGetAttribute     backendapi.BackendGetAttributeFunc
	ModelInitialize         backendapi.ModelInitializeFunc
	ModelFinalize           backendapi.ModelFinalizeFunc
	ModelInstanceInitialize backendapi.ModelInstanceInitializeFunc
	ModelInstanceFinalize   backendapi.ModelInstanceFinalizeFunc
	ModelInstanceExecute    backendapi.ModelInstanceExecuteFunc
}

// Bind resolves every entrypoint of lib. A missing ModelInstanceExecute is
// NotFound; a symbol of the wrong type is InvalidArgument.
func Bind(lib Library) (*Entrypoints, error) {
	var (
		ep  Entrypoints
		err error
	)
	if ep.BackendInitialize, err = resolve[backendapi.BackendInitializeFunc](lib, backendapi.SymBackendInitialize, false); err != nil {
		return nil, err
	}
	if ep.BackendFinalize, err = resolve[backendapi.BackendFinalizeFunc](lib, backendapi.SymBackendFinalize, false); err != nil {
		return nil, err
	}
	if ep.BackendGetAttribute, err = resolve[backendapi.BackendGetAttributeFunc](lib, backendapi.SymBackendGetAttribute, false); err != nil {
		return nil, err
	}
	if ep.ModelInitialize, err = resolve[backendapi.ModelInitializeFunc](lib, backendapi.SymModelInitialize, false); err != nil {
		return nil, err
	}
	if ep.ModelFinalize, err = resolve[backendapi.ModelFinalizeFunc](lib, backendapi.SymModelFinalize, false); err != nil {
		return nil, err
	}
	if ep.ModelInstanceInitialize, err = resolve[backendapi.ModelInstanceInitializeFunc](lib, backendapi.SymModelInstanceInitialize, false); err != nil {
		return nil, err
	}
	if ep.ModelInstanceFinalize, err = resolve[backendapi.ModelInstanceFinalizeFunc](lib, backendapi.SymModelInstanceFinalize, false); err != nil {
		return nil, err
	}
	if ep.ModelInstanceExecute, err = resolve[backendapi.ModelInstanceExecuteFunc](lib, backendapi.SymModelInstanceExecute, true); err != nil {
		return nil, err
	}
	return &ep, nil
}

// resolve looks up name and converts it to F. Functions and pointers to
// function variables are both accepted, as long as the signature matches.
func resolve[F any](lib Library, name string, required bool) (F, error) {
	var zero F
	sym, err := lib.Lookup(name)
	if err != nil {
		if required {
			return zero, status.Newf(status.NotFound,
				"unable to find required entrypoint '%s' in backend library '%s'", name, lib.Path())
		}
		return zero, nil
	}
	want := reflect.TypeOf(zero)
	v := reflect.ValueOf(sym)
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Func {
		v = v.Elem()
	}
	if v.Kind() != reflect.Func || !v.Type().ConvertibleTo(want) {
		return zero, status.Newf(status.InvalidArgument,
			"entrypoint '%s' in backend library '%s' has unexpected type %T", name, lib.Path(), sym)
	}
	if v.IsNil() {
		if required {
			return zero, status.Newf(status.NotFound,
				"required entrypoint '%s' in backend library '%s' is nil", name, lib.Path())
		}
		return zero, nil
	}
	return v.Convert(want).Interface().(F), nil
}

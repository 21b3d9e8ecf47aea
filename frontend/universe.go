package frontend

import (
	"github.com/cottand/iletype/frontend/types"
)

// builtinTypes maps the type names every module can use to their Simple name
var builtinTypes = map[string]string{
	types.IntName:    types.IntName,
	types.FloatName:  types.FloatName,
	types.StringName: types.StringName,
	types.BoolName:   types.BoolName,
	types.UnitName:   types.UnitName,
}

// builtinValues are the values every module can use, unless it declares
// a value with the same name
var builtinValues = map[string]func(*types.Arena) types.Handle{
	"True":  (*types.Arena).BoolType,
	"False": (*types.Arena).BoolType,
}

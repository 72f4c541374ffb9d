package payload

import (
	"github.com/crytic/movedusa/moveuvm"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// wireEntryFunction and wireScript are the CBOR-serializable shadow structs for EntryFunction and Script. A
// concrete shadow type (rather than serializing the Payload interface directly) keeps corpus entries portable
// across a struct-tag rename without depending on CBOR's own type-registry mechanism.
type wireEntryFunction struct {
	ModuleAddress moveuvm.Address `cbor:"1,keyasint"`
	ModuleName    string          `cbor:"2,keyasint"`
	FunctionName  string          `cbor:"3,keyasint"`
	TypeArgs      []string        `cbor:"4,keyasint"`
	Args          [][]byte        `cbor:"5,keyasint"`
}

type wireScriptArg struct {
	Tag   uint8  `cbor:"1,keyasint"`
	Value []byte `cbor:"2,keyasint"`
}

type wireScript struct {
	Code     []byte          `cbor:"1,keyasint"`
	TypeArgs []string        `cbor:"2,keyasint"`
	Args     []wireScriptArg `cbor:"3,keyasint"`
}

type wireEnvelope struct {
	Kind          uint8              `cbor:"1,keyasint"`
	EntryFunction *wireEntryFunction `cbor:"2,keyasint,omitempty"`
	Script        *wireScript        `cbor:"3,keyasint,omitempty"`
}

const (
	kindEntryFunction uint8 = 1
	kindScript        uint8 = 2
)

// Marshal serializes p to its on-disk corpus representation using CBOR, matching the compact binary encodings
// used elsewhere on the collaborator interfaces this harness targets.
func Marshal(p Payload) ([]byte, error) {
	var env wireEnvelope
	switch v := p.(type) {
	case *EntryFunction:
		env.Kind = kindEntryFunction
		env.EntryFunction = &wireEntryFunction{
			ModuleAddress: v.ModuleAddress,
			ModuleName:    v.ModuleName,
			FunctionName:  v.FunctionName,
			TypeArgs:      v.TypeArgs,
			Args:          v.Args,
		}
	case *Script:
		env.Kind = kindScript
		args := make([]wireScriptArg, len(v.Args))
		for i, a := range v.Args {
			args[i] = wireScriptArg{Tag: uint8(a.Tag), Value: a.Value}
		}
		env.Script = &wireScript{Code: v.Code, TypeArgs: v.TypeArgs, Args: args}
	default:
		return nil, errors.Errorf("payload: unknown variant %T", p)
	}

	b, err := cbor.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling payload")
	}
	return b, nil
}

// Unmarshal decodes a corpus entry previously produced by Marshal. A payload read back via Unmarshal round-trips
// to a value equal in variant, target identity, and argument bytes/tags to the one that was marshaled.
func Unmarshal(b []byte) (Payload, error) {
	var env wireEnvelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshaling payload")
	}

	switch env.Kind {
	case kindEntryFunction:
		if env.EntryFunction == nil {
			return nil, errors.New("payload: entry function envelope missing body")
		}
		w := env.EntryFunction
		return &EntryFunction{
			ModuleAddress: w.ModuleAddress,
			ModuleName:    w.ModuleName,
			FunctionName:  w.FunctionName,
			TypeArgs:      w.TypeArgs,
			Args:          w.Args,
		}, nil
	case kindScript:
		if env.Script == nil {
			return nil, errors.New("payload: script envelope missing body")
		}
		w := env.Script
		args := make([]ScriptArg, len(w.Args))
		for i, a := range w.Args {
			args[i] = ScriptArg{Tag: moveuvm.TypeTag(a.Tag), Value: a.Value}
		}
		return &Script{Code: w.Code, TypeArgs: w.TypeArgs, Args: args}, nil
	default:
		return nil, errors.Errorf("payload: unknown envelope kind %d", env.Kind)
	}
}

package payload

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/crytic/movedusa/moveuvm"
	"github.com/pkg/errors"
)

// ABI describes one entry function's callable signature, as read from a JSON file at --abi-path. There is no
// widely adopted Go library for Move/Aptos ABI files, and Aptos's own ABI format is itself plain JSON, so this
// harness reads it directly with encoding/json rather than reaching for a third-party parser.
type ABI struct {
	ModuleAddress  string   `json:"module_address"`
	ModuleName     string   `json:"module_name"`
	FunctionName   string   `json:"function_name"`
	TypeParameters []string `json:"type_parameters"`
	Parameters     []string `json:"parameters"`
}

// ParsedABI is an ABI with its address decoded and its parameter type strings resolved to TypeTags.
type ParsedABI struct {
	ModuleAddress  moveuvm.Address
	ModuleName     string
	FunctionName   string
	TypeParameters []string
	Parameters     []moveuvm.TypeTag
}

// SkippedABI records one ABI file LoadABIs read and unmarshaled successfully but could not resolve into a
// ParsedABI, together with the file it came from, so the caller can log and count the skip instead of it
// vanishing before the seeder ever sees it.
type SkippedABI struct {
	Path   string
	Reason string
}

// LoadABIs reads every *.json file under path (a file, or a directory scanned recursively) and parses each as an
// ABI. A single-file path is accepted so a caller pointing --abi-path at one function's ABI doesn't need to build
// a directory. Read or JSON errors on the path itself are fatal; the caller reports them via
// exitcodes.ExitCodeAbiPathUnreadable. An ABI that parses as JSON but names an unsupported parameter type is not
// fatal: it is returned in skipped rather than silently dropped, so the caller can make the skip observable.
func LoadABIs(path string) (parsed []ParsedABI, skipped []SkippedABI, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "stat abi path %q", path)
	}

	var files []string
	if info.IsDir() {
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
				return nil
			}
			files = append(files, p)
			return nil
		})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "walking abi directory %q", path)
		}
	} else {
		files = []string{path}
	}

	parsed = make([]ParsedABI, 0, len(files))
	for _, f := range files {
		raw, readErr := os.ReadFile(f)
		if readErr != nil {
			return nil, nil, errors.Wrapf(readErr, "reading abi file %q", f)
		}

		var a ABI
		if unmarshalErr := json.Unmarshal(raw, &a); unmarshalErr != nil {
			return nil, nil, errors.Wrapf(unmarshalErr, "parsing abi file %q", f)
		}

		p, ok, parseErr := a.Parse()
		if parseErr != nil {
			return nil, nil, errors.Wrapf(parseErr, "abi file %q", f)
		}
		if !ok {
			skipped = append(skipped, SkippedABI{Path: f, Reason: "unsupported parameter type"})
			continue
		}
		parsed = append(parsed, p)
	}

	return parsed, skipped, nil
}

// Parse decodes a's module address and resolves its parameter type strings to TypeTags. ok is false, with no
// error, when the ABI declares a parameter type this harness cannot synthesize a value for (struct, generic, or
// signer types); such ABIs are skipped by the seeder rather than treated as fatal.
func (a *ABI) Parse() (ParsedABI, bool, error) {
	addr, err := parseAddress(a.ModuleAddress)
	if err != nil {
		return ParsedABI{}, false, errors.Wrap(err, "parsing module address")
	}

	params := make([]moveuvm.TypeTag, len(a.Parameters))
	for i, ptype := range a.Parameters {
		tag, ok := resolveTypeTag(ptype)
		if !ok {
			return ParsedABI{}, false, nil
		}
		params[i] = tag
	}

	return ParsedABI{
		ModuleAddress:  addr,
		ModuleName:     a.ModuleName,
		FunctionName:   a.FunctionName,
		TypeParameters: a.TypeParameters,
		Parameters:     params,
	}, true, nil
}

func resolveTypeTag(s string) (moveuvm.TypeTag, bool) {
	switch s {
	case "bool":
		return moveuvm.TypeBool, true
	case "u8":
		return moveuvm.TypeU8, true
	case "u16":
		return moveuvm.TypeU16, true
	case "u32":
		return moveuvm.TypeU32, true
	case "u64":
		return moveuvm.TypeU64, true
	case "u128":
		return moveuvm.TypeU128, true
	case "u256":
		return moveuvm.TypeU256, true
	case "address":
		return moveuvm.TypeAddress, true
	case "vector<u8>":
		return moveuvm.TypeU8Vector, true
	default:
		return moveuvm.TypeUnsupported, false
	}
}

// parseAddress decodes a hex account address string, with or without a leading "0x". An empty string decodes to
// the zero address, matching this harness's default-address convention.
func parseAddress(s string) (moveuvm.Address, error) {
	var addr moveuvm.Address
	if s == "" {
		return addr, nil
	}
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) < 64 {
		s = padLeft(s, 64)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, errors.Wrapf(err, "decoding address %q", s)
	}
	if len(b) != 32 {
		return addr, errors.Errorf("address %q decodes to %d bytes, want 32", s, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

func padLeft(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}

package codec

import (
	"bytes"
	"fmt"

	"zynx/internal/errkind"
	"zynx/internal/model"
)

// Field numbers from §6, grouped and name-prefixed per message so a stray
// cross-message reuse (e.g. writing CheckArgsFast's tag 3 where
// CheckArgsSlow's tag 3 was meant) stands out when reading the code. They
// are plain untyped constants, so the compiler does not catch such a
// reuse.
const (
	tagPkgName       = 1
	tagPkgDebuggable = 2
	tagPkgDataDir    = 3
	tagPkgSEInfo     = 4
	tagPkgGIDs       = 5

	tagFastUID      = 1
	tagFastGID      = 2
	tagFastSysSrv   = 3
	tagFastChildZyg = 4
	tagFastPkgInfo  = 5

	tagSlowFast       = 1
	tagSlowNiceName   = 2
	tagSlowAppDataDir = 3

	tagRespResult = 1
)

// EncodePackageInfo encodes one PackageInfo as a TLV blob.
func EncodePackageInfo(p model.PackageInfo) []byte {
	var buf bytes.Buffer
	writeField(&buf, tagPkgName, []byte(p.PackageName))
	writeField(&buf, tagPkgDebuggable, encodeBoolValue(p.Debuggable))
	writeField(&buf, tagPkgDataDir, []byte(p.DataDir))
	writeField(&buf, tagPkgSEInfo, []byte(p.SEInfo))
	for _, g := range p.GIDs {
		writeField(&buf, tagPkgGIDs, encodeVarintValue(uint64(g)))
	}
	return buf.Bytes()
}

// DecodePackageInfo decodes a PackageInfo TLV blob, tolerating and
// skipping any field number it doesn't recognize.
func DecodePackageInfo(data []byte) (model.PackageInfo, error) {
	var p model.PackageInfo
	err := iterFields(data, func(f field) error {
		switch f.num {
		case tagPkgName:
			p.PackageName = string(f.value)
		case tagPkgDebuggable:
			b, err := decodeBoolValue(f.value)
			if err != nil {
				return err
			}
			p.Debuggable = b
		case tagPkgDataDir:
			p.DataDir = string(f.value)
		case tagPkgSEInfo:
			p.SEInfo = string(f.value)
		case tagPkgGIDs:
			v, err := decodeVarintValue(f.value)
			if err != nil {
				return err
			}
			p.GIDs = append(p.GIDs, uint32(v))
		}
		return nil
	})
	return p, err
}

// EncodeCheckArgsFast encodes the fast-phase request.
func EncodeCheckArgsFast(a model.FastArgs) []byte {
	var buf bytes.Buffer
	writeField(&buf, tagFastUID, encodeVarintValue(uint64(a.UID)))
	writeField(&buf, tagFastGID, encodeVarintValue(uint64(a.GID)))
	writeField(&buf, tagFastSysSrv, encodeBoolValue(a.IsSystemServer))
	writeField(&buf, tagFastChildZyg, encodeBoolValue(a.IsChildZygote))
	for _, pkg := range a.PackageInfo {
		writeField(&buf, tagFastPkgInfo, EncodePackageInfo(pkg))
	}
	return buf.Bytes()
}

// DecodeCheckArgsFast decodes a fast-phase request.
func DecodeCheckArgsFast(data []byte) (model.FastArgs, error) {
	var a model.FastArgs
	err := iterFields(data, func(f field) error {
		switch f.num {
		case tagFastUID:
			v, err := decodeVarintValue(f.value)
			if err != nil {
				return err
			}
			a.UID = uint32(v)
		case tagFastGID:
			v, err := decodeVarintValue(f.value)
			if err != nil {
				return err
			}
			a.GID = uint32(v)
		case tagFastSysSrv:
			b, err := decodeBoolValue(f.value)
			if err != nil {
				return err
			}
			a.IsSystemServer = b
		case tagFastChildZyg:
			b, err := decodeBoolValue(f.value)
			if err != nil {
				return err
			}
			a.IsChildZygote = b
		case tagFastPkgInfo:
			pkg, err := DecodePackageInfo(f.value)
			if err != nil {
				return err
			}
			a.PackageInfo = append(a.PackageInfo, pkg)
		}
		return nil
	})
	return a, err
}

// EncodeCheckArgsSlow encodes the slow-phase request.
func EncodeCheckArgsSlow(a model.SlowArgs) []byte {
	var buf bytes.Buffer
	writeField(&buf, tagSlowFast, EncodeCheckArgsFast(a.Fast))
	if a.NiceName != nil {
		writeField(&buf, tagSlowNiceName, []byte(*a.NiceName))
	}
	if a.AppDataDir != nil {
		writeField(&buf, tagSlowAppDataDir, []byte(*a.AppDataDir))
	}
	return buf.Bytes()
}

// DecodeCheckArgsSlow decodes a slow-phase request.
func DecodeCheckArgsSlow(data []byte) (model.SlowArgs, error) {
	var a model.SlowArgs
	err := iterFields(data, func(f field) error {
		switch f.num {
		case tagSlowFast:
			fast, err := DecodeCheckArgsFast(f.value)
			if err != nil {
				return err
			}
			a.Fast = fast
		case tagSlowNiceName:
			s := string(f.value)
			a.NiceName = &s
		case tagSlowAppDataDir:
			s := string(f.value)
			a.AppDataDir = &s
		}
		return nil
	})
	return a, err
}

// EncodeCheckResponse encodes a verdict response.
func EncodeCheckResponse(v model.Verdict) []byte {
	var buf bytes.Buffer
	writeField(&buf, tagRespResult, encodeVarintValue(uint64(v)))
	return buf.Bytes()
}

// DecodeCheckResponse decodes a verdict response.
func DecodeCheckResponse(data []byte) (model.Verdict, error) {
	var v model.Verdict
	seen := false
	err := iterFields(data, func(f field) error {
		if f.num == tagRespResult {
			n, err := decodeVarintValue(f.value)
			if err != nil {
				return err
			}
			if n > 2 {
				return errkind.New(errkind.Decode, fmt.Errorf("result %d out of range", n))
			}
			v = model.Verdict(n)
			seen = true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !seen {
		return 0, errkind.New(errkind.Decode, fmt.Errorf("CheckResponse missing result field"))
	}
	return v, nil
}

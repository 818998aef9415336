package compressio

import "github.com/golang/snappy"

// compressSnappy writes a snappy block after a 4-byte length prefix.
func compressSnappy(ws *workspace, dst, src []byte) attempt {
	if len(dst) <= lenPrefix {
		return attempt{}
	}

	out := snappy.Encode(ws.scratch, src)
	if len(out) > len(dst)-lenPrefix {
		return attempt{}
	}

	putPrefix(dst, len(out))
	copy(dst[lenPrefix:], out)
	return attempt{ok: true, written: lenPrefix + len(out)}
}

func decompressSnappy(dst, src []byte) error {
	payload, err := prefixed(src)
	if err != nil {
		return err
	}

	n, err := snappy.DecodedLen(payload)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return errLength
	}
	_, err = snappy.Decode(dst, payload)
	return err
}

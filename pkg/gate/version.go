package gate

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Command ids of the version exchange
const (
	CmdVersionRequest  uint16 = 10800
	CmdVersionResponse uint16 = 10801
)

// VersionRequest asks the gate server for version information
type VersionRequest struct {
	State    uint32
	Platform string
}

// Marshal encodes the request as protobuf
func (r VersionRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.State))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, r.Platform)
	return b
}

// VersionResponse carries the gateway address and the raw version
// strings of every resource category
type VersionResponse struct {
	GatewayIP   string
	GatewayPort uint32
	URL         string
	Versions    []string
}

// UnmarshalVersionResponse decodes a protobuf encoded response. Unknown
// fields are skipped.
func UnmarshalVersionResponse(b []byte) (VersionResponse, error) {
	var resp VersionResponse
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return VersionResponse{}, fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return VersionResponse{}, fmt.Errorf("invalid gateway ip: %w", protowire.ParseError(m))
			}
			resp.GatewayIP, n = s, m
		case num == 2 && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return VersionResponse{}, fmt.Errorf("invalid gateway port: %w", protowire.ParseError(m))
			}
			resp.GatewayPort, n = uint32(v), m
		case num == 3 && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return VersionResponse{}, fmt.Errorf("invalid url: %w", protowire.ParseError(m))
			}
			resp.URL, n = s, m
		case num == 4 && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return VersionResponse{}, fmt.Errorf("invalid version: %w", protowire.ParseError(m))
			}
			resp.Versions = append(resp.Versions, s)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return VersionResponse{}, fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return resp, nil
}

// Marshal encodes the response as protobuf
func (r VersionResponse) Marshal() []byte {
	var b []byte
	if r.GatewayIP != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, r.GatewayIP)
	}
	if r.GatewayPort != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.GatewayPort))
	}
	if r.URL != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, r.URL)
	}
	for _, v := range r.Versions {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

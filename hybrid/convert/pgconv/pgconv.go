// Package pgconv converts values the way PostgreSQL returns them: each value
// is encoded to the text form of the column type and scanned back with the
// pgx type map.
package pgconv

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/convert"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/errs"
	"github.com/krew-solutions/ascetic-hybrid-go/hybrid/expression"
)

var oids = map[expression.DataType]uint32{
	expression.TypeInteger:  pgtype.Int8OID,
	expression.TypeFloat:    pgtype.Float8OID,
	expression.TypeDecimal:  pgtype.NumericOID,
	expression.TypeText:     pgtype.TextOID,
	expression.TypeBoolean:  pgtype.BoolOID,
	expression.TypeDate:     pgtype.DateOID,
	expression.TypeDateTime: pgtype.TimestamptzOID,
	expression.TypeUUID:     pgtype.UUIDOID,
	expression.TypeBinary:   pgtype.ByteaOID,
}

// Provider round-trips values through the PostgreSQL text protocol. Types
// it has no column type for fall back to the native conversion.
type Provider struct {
	m *pgtype.Map
}

func New() *Provider {
	return &Provider{m: pgtype.NewMap()}
}

func (p *Provider) Converter(dt expression.DataType) (convert.Func, bool) {
	oid, ok := oids[dt]
	if !ok {
		return convert.Native.Converter(dt)
	}
	return func(v any) (any, error) {
		return p.roundTrip(dt, oid, v)
	}, true
}

func (p *Provider) roundTrip(dt expression.DataType, oid uint32, v any) (any, error) {
	// The native conversion brings the value to the Go type pgx encodes
	// for the column type.
	native, err := convert.To(dt, v)
	if err != nil {
		return nil, err
	}
	text, err := p.encode(oid, native)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrType, "encoding %v as %s: %v", v, dt, err)
	}
	out, err := p.scan(dt, oid, text)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrType, "scanning %q as %s: %v", text, dt, err)
	}
	return out, nil
}

func (p *Provider) encode(oid uint32, v any) ([]byte, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return []byte(x.String()), nil
	case uuid.UUID:
		return []byte(x.String()), nil
	}
	return p.m.Encode(oid, pgtype.TextFormatCode, v, nil)
}

func (p *Provider) scan(dt expression.DataType, oid uint32, src []byte) (any, error) {
	switch dt {
	case expression.TypeDecimal:
		var n pgtype.Numeric
		if err := p.m.Scan(oid, pgtype.TextFormatCode, src, &n); err != nil {
			return nil, err
		}
		text, err := n.Value()
		if err != nil {
			return nil, err
		}
		return decimal.NewFromString(text.(string))
	case expression.TypeUUID:
		var u pgtype.UUID
		if err := p.m.Scan(oid, pgtype.TextFormatCode, src, &u); err != nil {
			return nil, err
		}
		return uuid.UUID(u.Bytes), nil
	}

	var dst any
	if err := p.m.Scan(oid, pgtype.TextFormatCode, src, &dst); err != nil {
		return nil, err
	}
	return dst, nil
}

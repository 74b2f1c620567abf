package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("hash", HashMeddler)
	meddler.Register("address", AddressMeddler)
}

var (
	// HashMeddler maps common.Hash and *common.Hash to a nullable hex column.
	HashMeddler = hexMeddler[common.Hash]{parse: common.HexToHash, hex: common.Hash.Hex}
	// AddressMeddler maps common.Address and *common.Address to a nullable hex column.
	AddressMeddler = hexMeddler[common.Address]{parse: common.HexToAddress, hex: common.Address.Hex}
)

type hexMeddler[T common.Hash | common.Address] struct {
	parse func(string) T
	hex   func(T) string
}

func (h hexMeddler[T]) PreRead(fieldAddr any) (scanTarget any, err error) {
	return new(sql.NullString), nil
}

func (h hexMeddler[T]) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case **T:
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		v := h.parse(ns.String)
		*ptr = &v
	case *T:
		if !ns.Valid {
			var zero T
			*ptr = zero
			return nil
		}
		*ptr = h.parse(ns.String)
	default:
		return fmt.Errorf("expected *%T or **%T, got %T", *new(T), *new(T), fieldAddr)
	}

	return nil
}

func (h hexMeddler[T]) PreWrite(field any) (saveValue any, err error) {
	switch v := field.(type) {
	case *T:
		if v == nil {
			return nil, nil
		}
		return h.hex(*v), nil
	case T:
		return h.hex(v), nil
	default:
		return nil, fmt.Errorf("expected %T or *%T, got %T", *new(T), *new(T), field)
	}
}

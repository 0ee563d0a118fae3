package catalog

import "database/sql"

type sqlNullInt struct{ sql.NullInt64 }

func (n sqlNullInt) ptr() *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

type sqlNullFloat struct{ sql.NullFloat64 }

func (n sqlNullFloat) ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

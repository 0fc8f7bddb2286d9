package series

import (
	"fmt"
	"sort"

	"cambioproxy/internal/provider"
	"cambioproxy/internal/provider/sidra"
)

// Origin is the statistics agency a series is read from.
type Origin string

const (
	OriginBCB  Origin = "Banco Central do Brasil"
	OriginIBGE Origin = "IBGE"
)

// Granularity is how often a SIDRA table publishes.
type Granularity int

const (
	Monthly Granularity = iota
	Yearly
)

// Definition binds a public series name to its source coordinates.
type Definition struct {
	Name   string
	Origin Origin
	// SGSCode is set for BCB series.
	SGSCode int
	// SIDRA is set for IBGE series; its Period is filled per request.
	SIDRA       sidra.Query
	Granularity Granularity
}

// Code is the numeric identifier reported to callers: the SGS code or the
// SIDRA table.
func (d Definition) Code() int {
	if d.Origin == OriginIBGE {
		return d.SIDRA.Table
	}
	return d.SGSCode
}

// Catalog is an immutable name -> Definition index.
type Catalog struct {
	byName map[string]Definition
}

// NewCatalog validates defs. Names must be unique and each definition must
// carry the coordinates its origin needs.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("series %s listed twice", d.Name)
		}
		switch d.Origin {
		case OriginBCB:
			if d.SGSCode <= 0 {
				return nil, fmt.Errorf("series %s: sgs code must be > 0", d.Name)
			}
		case OriginIBGE:
			if d.SIDRA.Table <= 0 || d.SIDRA.Variable <= 0 {
				return nil, fmt.Errorf("series %s: sidra table and variable are required", d.Name)
			}
		default:
			return nil, fmt.Errorf("series %s: unknown origin %q", d.Name, d.Origin)
		}
		c.byName[d.Name] = d
	}
	return c, nil
}

// DefaultCatalog is the catalog shipped with the service.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Definition{Name: "DOLAR_VENDA", Origin: OriginBCB, SGSCode: 1},
		Definition{Name: "PTAX_VENDA", Origin: OriginBCB, SGSCode: 10813},
		Definition{Name: "IPCA", Origin: OriginBCB, SGSCode: 433},
		Definition{Name: "SELIC_META", Origin: OriginBCB, SGSCode: 4390},
		Definition{Name: "RESERVAS_INTERNACIONAIS", Origin: OriginBCB, SGSCode: 13521},
		Definition{Name: "PIB_MENSAL", Origin: OriginBCB, SGSCode: 4380},
		Definition{Name: "BALANCA_COMERCIAL", Origin: OriginBCB, SGSCode: 22707},
		Definition{Name: "IPCA_IBGE", Origin: OriginIBGE, SIDRA: sidra.Query{Table: 1737, Variable: 63}, Granularity: Monthly},
		Definition{
			Name: "PRODUCAO_INDUSTRIAL", Origin: OriginIBGE, Granularity: Monthly,
			SIDRA: sidra.Query{Table: 8888, Variable: 12606, Classification: "c544/129314"},
		},
		Definition{Name: "PIB_ANUAL", Origin: OriginIBGE, SIDRA: sidra.Query{Table: 6784, Variable: 9808}, Granularity: Yearly},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the named definition. Unknown names are invalid requests.
func (c *Catalog) Lookup(name string) (Definition, error) {
	d, ok := c.byName[name]
	if !ok {
		return Definition{}, provider.Invalid("series", "unknown series %q", name)
	}
	return d, nil
}

// Names lists the catalog alphabetically.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.byName))
	for n := range c.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

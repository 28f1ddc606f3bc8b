package backend

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siteopt/internal/model"
)

// Method is the solver strategy.
type Method string

const (
	MethodNumerical Method = "numerical"
	MethodGenetic   Method = "genetic"
)

// DistanceFormula is how the solver measures unit-to-site distance.
type DistanceFormula string

const (
	DistanceRoad      DistanceFormula = "road"
	DistanceEuclidean DistanceFormula = "euclidean"
	DistanceTime      DistanceFormula = "time"
)

// ParseMethod accepts a method name case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodNumerical, MethodGenetic:
		return m, nil
	default:
		return "", eris.Errorf("backend: unknown method %q (want numerical or genetic)", s)
	}
}

// ParseDistanceFormula accepts a distance formula name case-insensitively.
func ParseDistanceFormula(s string) (DistanceFormula, error) {
	switch f := DistanceFormula(strings.ToLower(strings.TrimSpace(s))); f {
	case DistanceRoad, DistanceEuclidean, DistanceTime:
		return f, nil
	default:
		return "", eris.Errorf("backend: unknown distance formula %q (want road, euclidean or time)", s)
	}
}

// OptimizeRequest is the body of the optimization endpoint.
type OptimizeRequest struct {
	L               int                   `json:"L"`
	Method          Method                `json:"method"`
	Sites           model.SiteColumns     `json:"sites"`
	Barangays       model.BarangayColumns `json:"barangays"`
	DistanceFormula DistanceFormula       `json:"distance_formula"`
}

// NewOptimizeRequest builds a request for l sites over ds.
func NewOptimizeRequest(ds model.Dataset, l int, method Method, formula DistanceFormula) OptimizeRequest {
	return OptimizeRequest{
		L:               l,
		Method:          method,
		Sites:           ds.Sites,
		Barangays:       ds.Barangays,
		DistanceFormula: formula,
	}
}

// Validate rejects requests the service would refuse.
func (r OptimizeRequest) Validate() error {
	if r.L <= 0 {
		return &model.ValidationError{Field: "L", Reason: "number of sites (L) must be a positive integer"}
	}
	if n := len(r.Sites.Locations); r.L > n {
		return &model.ValidationError{
			Field:  "L",
			Reason: fmt.Sprintf("cannot select %d sites from %d candidates", r.L, n),
		}
	}
	if _, err := ParseMethod(string(r.Method)); err != nil {
		return &model.ValidationError{Field: "method", Reason: err.Error()}
	}
	if _, err := ParseDistanceFormula(string(r.DistanceFormula)); err != nil {
		return &model.ValidationError{Field: "distance_formula", Reason: err.Error()}
	}
	return model.Dataset{Sites: r.Sites, Barangays: r.Barangays}.Validate()
}

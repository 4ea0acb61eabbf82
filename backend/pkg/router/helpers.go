package router

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"robot-bridge/backend/pkg/generate"
)

func validateRouteSpec(spec RouteSpec) error {
	switch {
	case spec.OperationID == "":
		return errors.New("field OperationID required")
	case spec.Summary == "":
		return errors.New("field Summary required")
	case spec.Description == "":
		return errors.New("field Description required")
	case spec.Group == "":
		return errors.New("field Group required")
	case spec.Handler == nil:
		return errors.New("field Handler required")
	case len(spec.Responses) == 0:
		return errors.New("field Responses required")
	}

	return nil
}

// generateParameters checks that every {param} in the path is documented as a required
// path parameter and converts the specs for the collector.
func generateParameters(spec RouteSpec) ([]generate.ParameterInfo, error) {
	inPath := map[string]struct{}{}

	for section := range strings.SplitSeq(spec.fullPath, "/") {
		names, err := generate.ExtractParamName(section)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", spec.fullPath, err)
		}

		for _, name := range names {
			if !generate.IsValidParameterName(name) {
				return nil, fmt.Errorf("invalid parameter name %s in path %s", name, spec.fullPath)
			}

			inPath[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(spec.Parameters))
	for name := range spec.Parameters {
		names = append(names, name)
	}

	slices.Sort(names)

	documented := map[string]struct{}{}
	parameters := make([]generate.ParameterInfo, 0, len(names))
	validIn := []ParameterIn{ParameterInPath, ParameterInQuery, ParameterInHeader}

	for _, name := range names {
		p := spec.Parameters[name]

		if name == "" || p.Description == "" || p.Type == nil {
			return nil, fmt.Errorf("parameter %q of %s %s needs a name, Description and Type", name, spec.method, spec.fullPath)
		}

		if !slices.Contains(validIn, p.In) {
			return nil, fmt.Errorf("parameter %s In must be one of %v", name, validIn)
		}

		if p.In == ParameterInPath {
			if _, ok := inPath[name]; !ok {
				return nil, fmt.Errorf("documented path parameter %s not found in path %s", name, spec.fullPath)
			}

			if !p.Required {
				return nil, fmt.Errorf("path parameter %s must be required", name)
			}

			documented[name] = struct{}{}
		}

		parameters = append(parameters, generate.ParameterInfo{
			Name:        name,
			In:          string(p.In),
			TypeValue:   p.Type,
			Description: p.Description,
			Required:    p.Required,
		})
	}

	for name := range inPath {
		if _, ok := documented[name]; !ok {
			return nil, fmt.Errorf("path parameter %s not documented", name)
		}
	}

	return parameters, nil
}

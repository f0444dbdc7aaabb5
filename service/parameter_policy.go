package service

import (
	"fmt"
	"sort"
	"strings"

	"wagerbook/models"
)

// ParameterPolicy states whether a wager parameter may accompany an operation
type ParameterPolicy string

const (
	PolicyForbidden ParameterPolicy = "FORBIDDEN"
	PolicyOptional  ParameterPolicy = "OPTIONAL"
	PolicyRequired  ParameterPolicy = "REQUIRED"
)

func (p ParameterPolicy) isValid() bool {
	return p == PolicyForbidden || p == PolicyOptional || p == PolicyRequired
}

// WagerParameter names a field of the wager parameters bundle
type WagerParameter string

const (
	ParamTaker      WagerParameter = "taker"
	ParamArbiter    WagerParameter = "arbiter"
	ParamOutcome    WagerParameter = "outcome"
	ParamMakerOffer WagerParameter = "makerOffer"
	ParamTakerOffer WagerParameter = "takerOffer"
	ParamExpiration WagerParameter = "expiration"
	ParamMaturation WagerParameter = "maturation"
)

// AllWagerParameters returns every wager parameter in a stable order
func AllWagerParameters() []WagerParameter {
	return []WagerParameter{
		ParamTaker,
		ParamArbiter,
		ParamOutcome,
		ParamMakerOffer,
		ParamTakerOffer,
		ParamExpiration,
		ParamMaturation,
	}
}

// PolicyTable maps each operation type to the policy of every wager parameter
type PolicyTable map[models.OperationType]map[WagerParameter]ParameterPolicy

// DefaultPolicyTable returns the policy the service runs with.
// Only a proposal carries wager parameters; every other type forbids all of them.
func DefaultPolicyTable() PolicyTable {
	table := PolicyTable{
		models.OperationTypePropose: {
			ParamTaker:      PolicyOptional,
			ParamArbiter:    PolicyOptional,
			ParamOutcome:    PolicyRequired,
			ParamMakerOffer: PolicyRequired,
			ParamTakerOffer: PolicyRequired,
			ParamExpiration: PolicyOptional,
			ParamMaturation: PolicyOptional,
		},
	}
	for _, opType := range models.AllOperationTypes() {
		if opType == models.OperationTypePropose {
			continue
		}
		row := make(map[WagerParameter]ParameterPolicy, len(AllWagerParameters()))
		for _, param := range AllWagerParameters() {
			row[param] = PolicyForbidden
		}
		table[opType] = row
	}
	return table
}

// PolicyTableError lists every inconsistency found in a policy table
type PolicyTableError struct {
	Problems []string
}

func (e *PolicyTableError) Error() string {
	return fmt.Sprintf("inconsistent wager parameter policy table: %s", strings.Join(e.Problems, "; "))
}

// CheckPolicyTable verifies the table has exactly one row per operation type,
// exactly one entry per wager parameter in each row, and only known policy values.
func CheckPolicyTable(table PolicyTable) error {
	var problems []string

	knownTypes := make(map[models.OperationType]bool)
	for _, opType := range models.AllOperationTypes() {
		knownTypes[opType] = true
		if _, ok := table[opType]; !ok {
			problems = append(problems, fmt.Sprintf("operation type %s has no policy row", opType))
		}
	}

	knownParams := make(map[WagerParameter]bool)
	for _, param := range AllWagerParameters() {
		knownParams[param] = true
	}

	for _, opType := range sortedOperationTypes(table) {
		row := table[opType]
		if !knownTypes[opType] {
			problems = append(problems, fmt.Sprintf("unexpected operation type %q in policy table", opType))
			continue
		}
		for _, param := range AllWagerParameters() {
			if _, ok := row[param]; !ok {
				problems = append(problems, fmt.Sprintf("%s row is missing parameter %s", opType, param))
			}
		}
		for _, param := range sortedParameters(row) {
			policy := row[param]
			if !knownParams[param] {
				problems = append(problems, fmt.Sprintf("%s row has unexpected parameter %q", opType, param))
				continue
			}
			if !policy.isValid() {
				problems = append(problems, fmt.Sprintf("%s row has invalid policy %q for %s", opType, policy, param))
			}
		}
	}

	if len(problems) > 0 {
		return &PolicyTableError{Problems: problems}
	}
	return nil
}

func sortedOperationTypes(table PolicyTable) []models.OperationType {
	types := make([]models.OperationType, 0, len(table))
	for opType := range table {
		types = append(types, opType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func sortedParameters(row map[WagerParameter]ParameterPolicy) []WagerParameter {
	params := make([]WagerParameter, 0, len(row))
	for param := range row {
		params = append(params, param)
	}
	sort.Slice(params, func(i, j int) bool { return params[i] < params[j] })
	return params
}

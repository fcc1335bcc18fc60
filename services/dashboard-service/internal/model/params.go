package model

import (
	"encoding/json"
	"strings"
)

// RunParams is the configuration of a new run. Each field maps to a
// checker property; the backend rewrites "_" to "." in the key, so
// db_type becomes db.type in the generated config.properties. Numeric
// fields are pointers so an explicit zero is sent rather than dropped.
type RunParams struct {
	DBURL                  string   `json:"db_url,omitempty"`
	DBUsername             string   `json:"db_username,omitempty"`
	DBPassword             string   `json:"db_password,omitempty"`
	DBIsolation            string   `json:"db_isolation,omitempty" validate:"omitempty,oneof=TRANSACTION_READ_UNCOMMITTED TRANSACTION_READ_COMMITTED TRANSACTION_REPEATABLE_READ TRANSACTION_SERIALIZATION"`
	DBType                 string   `json:"db_type,omitempty" validate:"omitempty,oneof=mysql sqlite postgresql mariadb h2"`
	WorkloadType           string   `json:"workload_type,omitempty"`
	WorkloadHistory        *int     `json:"workload_history,omitempty" validate:"omitempty,gte=0"`
	WorkloadSession        *int     `json:"workload_session,omitempty" validate:"omitempty,gte=0"`
	WorkloadTransaction    *int     `json:"workload_transaction,omitempty" validate:"omitempty,gte=0"`
	WorkloadOperation      *int     `json:"workload_operation,omitempty" validate:"omitempty,gte=0"`
	WorkloadReadProportion *float64 `json:"workload_readproportion,omitempty" validate:"omitempty,gte=0,lte=1"`
	WorkloadKey            *int     `json:"workload_key,omitempty" validate:"omitempty,gte=0"`
	WorkloadDistribution   string   `json:"workload_distribution,omitempty"`
	WorkloadVariable       *int     `json:"workload_variable,omitempty" validate:"omitempty,gte=0"`
	CheckerType            string   `json:"checker_type,omitempty"`
	CheckerIsolation       string   `json:"checker_isolation,omitempty" validate:"omitempty,oneof=READ_COMMITTED REPEATABLE_READ READ_ATOMICITY TRANSACTIONAL_CAUSAL_CONSISTENCY SNAPSHOT_ISOLATION SERIALIZABLE VIPER_SNAPSHOT_ISOLATION POLYSI+_SNAPSHOT_ISOLATION"`
	ProfilerEnable         *bool    `json:"profiler_enable,omitempty"`

	// Extra carries options the struct does not name. They are sent at the
	// top level of the body next to the named fields, which take precedence.
	Extra map[string]any `json:"-"`
}

// Ptr returns a pointer to v, for filling optional RunParams fields
func Ptr[T any](v T) *T {
	return &v
}

// Histories returns the requested history count, or 0 when unset
func (p RunParams) Histories() int {
	if p.WorkloadHistory == nil {
		return 0
	}
	return *p.WorkloadHistory
}

// runParamsFields avoids MarshalJSON recursion
type runParamsFields RunParams

// MarshalJSON encodes the params as one flat object
func (p RunParams) MarshalJSON() ([]byte, error) {
	named, err := json.Marshal(runParamsFields(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return named, nil
	}

	body := make(map[string]any, len(p.Extra))
	for k, v := range p.Extra {
		body[k] = v
	}

	var fields map[string]any
	if err := json.Unmarshal(named, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		body[k] = v
	}

	return json.Marshal(body)
}

// UnmarshalJSON decodes the named fields and keeps unknown keys in Extra
func (p *RunParams) UnmarshalJSON(data []byte) error {
	var fields runParamsFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range knownParamKeys {
		delete(raw, key)
	}

	*p = RunParams(fields)
	if len(raw) == 0 {
		return nil
	}

	p.Extra = make(map[string]any, len(raw))
	for k, v := range raw {
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return err
		}
		p.Extra[k] = value
	}
	return nil
}

// Properties renders the params the way the backend writes them to
// config.properties
func (p RunParams) Properties() (map[string]any, error) {
	data, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	props := make(map[string]any, len(body))
	for k, v := range body {
		props[strings.ReplaceAll(k, "_", ".")] = v
	}
	return props, nil
}

var knownParamKeys = []string{
	"db_url", "db_username", "db_password", "db_isolation", "db_type",
	"workload_type", "workload_history", "workload_session",
	"workload_transaction", "workload_operation", "workload_readproportion",
	"workload_key", "workload_distribution", "workload_variable",
	"checker_type", "checker_isolation", "profiler_enable",
}

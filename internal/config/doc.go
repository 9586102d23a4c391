// Package config loads userd configuration from YAML.
//
// Features:
//
//   - Environment variable expansion: ${VAR_NAME} in the YAML is replaced
//     with the variable's value before parsing.
//   - Duration parsing: TTL and sweep fields are written as Go duration
//     strings ("1h", "5m") and parsed into time.Duration.
//   - Validation: required fields and TTL sanity (the elevated TTL may not
//     exceed either lifetime tier) are checked at load time.
package config

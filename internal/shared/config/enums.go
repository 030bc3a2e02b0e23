//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package config

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string

// ConfirmMode controls how a rule match is confirmed before delivery
// ENUM(prompt,approve,decline)
type ConfirmMode string

// IngestMode selects how incoming messages reach the dispatcher
// ENUM(push,poll)
type IngestMode string

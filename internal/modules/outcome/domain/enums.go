//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// OutcomeStatus represents the result of one dispatch attempt
// ENUM(sent,sent_scheduled,skipped_no_match,skipped_declined,failed,deferred_rate_limit)
type OutcomeStatus string

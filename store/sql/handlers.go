package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// stringKeyHandlers wires a repository for records keyed by a text id.
func stringKeyHandlers[T any](newRecord func() T, key func(T) *string) repository.ModelHandlers[T] {
	return repository.ModelHandlers[T]{
		NewRecord: newRecord,
		GetID: func(record T) uuid.UUID {
			id := key(record)
			if id == nil {
				return uuid.Nil
			}
			return parseUUID(*id)
		},
		SetID: func(record T, id uuid.UUID) {
			if target := key(record); target != nil {
				*target = id.String()
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record T) string {
			id := key(record)
			if id == nil {
				return ""
			}
			return strings.TrimSpace(*id)
		},
	}
}

func organizationHandlers() repository.ModelHandlers[*organizationRecord] {
	return stringKeyHandlers(
		func() *organizationRecord { return &organizationRecord{} },
		func(record *organizationRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func campaignHandlers() repository.ModelHandlers[*campaignRecord] {
	return stringKeyHandlers(
		func() *campaignRecord { return &campaignRecord{} },
		func(record *campaignRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func fundRequestHandlers() repository.ModelHandlers[*fundRequestRecord] {
	return stringKeyHandlers(
		func() *fundRequestRecord { return &fundRequestRecord{} },
		func(record *fundRequestRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func endowmentFundHandlers() repository.ModelHandlers[*endowmentFundRecord] {
	return stringKeyHandlers(
		func() *endowmentFundRecord { return &endowmentFundRecord{} },
		func(record *endowmentFundRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func notificationDispatchHandlers() repository.ModelHandlers[*notificationDispatchRecord] {
	return stringKeyHandlers(
		func() *notificationDispatchRecord { return &notificationDispatchRecord{} },
		func(record *notificationDispatchRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}

func validateRepository(name string, repo any) error {
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return wrapWiring(name, err)
		}
	}
	return nil
}

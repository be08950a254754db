package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the caller did not set one. Postgres
// also carries a gen_random_uuid() default, but the hook keeps inserts
// portable across drivers used in tests.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All returns every model registered for auto-migration.
func All() []any {
	return []any{
		&Tradeline{},
		&Cart{},
		&CartItem{},
		&PaymentMethodConfig{},
		&PaymentRequest{},
		&PaymentVerification{},
		&ClientTradelineGrant{},
	}
}

package tally

import "github.com/xraph/tally/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Rate is re-exported from types package.
type Rate = types.Rate

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money constructors
var (
	USD  = types.USD
	ARS  = types.ARS
	EUR  = types.EUR
	Zero = types.Zero
	Sum  = types.Sum
)

// Re-export Rate constructors
var (
	NewRate   = types.NewRate
	ParseRate = types.ParseRate
)

// Re-export Entity constructor
var NewEntity = types.NewEntity

// Package estimator computes electric-vehicle driving range from a battery
// state of charge and a set of environmental and behavioural multipliers.
//
// Two independent strategies are provided. DegradationModel works from the
// usable share of the battery capacity and reports kilometres. EpaModel scales
// a manufacturer EPA rating by driving conditions and reports miles. Both are
// pure: they hold no state, perform no I/O and are safe for concurrent use.
// Either can be resolved by name through New for callers that receive raw
// parameter maps.
package estimator

// Package prediction implements the predictive maintenance scoring engine.
// A telemetry snapshot is normalised into a fixed feature vector, scored by a
// linear model and mapped through a sigmoid to a maintenance probability. A
// rule-based classifier turns the score and the raw telemetry into a
// maintenance category and a due date, and a component sub-model labels the
// engine, battery, tires and brakes. The Trainer adjusts the model weights
// with per-sample gradient descent over historical snapshots.
//
// Models are seeded explicitly: two engines built from the same seed produce
// identical predictions, while engines built from different seeds disagree
// until they are trained. This is expected.
package prediction

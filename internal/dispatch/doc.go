// Package dispatch decides when the periodic dispatch action is due.
//
// Evaluate is a pure function of the current time and a Settings value;
// LoadSettings resolves that value from the settings table, applying the
// documented defaults. Watcher runs the decision on a cron schedule and
// executes the configured dispatch command when it comes up due.
package dispatch

// Package netmon reports network reachability transitions.
//
// A Monitor combines a polled Probe with pushed platform notifications
// (Notify) and calls its OnChange handlers only when the reachability
// verdict actually changes.
package netmon

// Package timetable provides daily event timetables.
//
// Every source implements Provider. Aladhan queries the aladhan.com calendar
// API, ICS reads a calendar file (expanding RRULEs), and Fixed serves the
// same times every day. Cached wraps any of them with the on-disk cache: a
// window is served from the store while younger than the staleness limit,
// refreshed on demand, and served stale (with a warning) when the upstream
// fails and the cache still covers the window.
package timetable

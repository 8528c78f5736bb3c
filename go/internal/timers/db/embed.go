package db

import _ "embed"

// Schema creates the timers table and its change-notification trigger.
//
//go:embed schema.sql
var Schema string

// NotifyChannel is the LISTEN/NOTIFY channel the trigger publishes on.
const NotifyChannel = "timers_changes"

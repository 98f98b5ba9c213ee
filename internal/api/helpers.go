package api

import "time"

// timeFormat is the timestamp layout used in JSON responses.
const timeFormat = time.RFC3339

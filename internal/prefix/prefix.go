// Package prefix builds the S3 key prefix an export task writes under.
package prefix

import "strings"

const separator = "/"

// Build returns [callerPrefix/]date/segment where segment is the log group
// name with every "/" turned into "-". A leading separator on the log group
// or the caller prefix is dropped. Anything else passes through untouched.
func Build(logGroupName, date, callerPrefix string) string {
	key := date + separator + Segment(logGroupName)
	if callerPrefix == "" {
		return key
	}
	return strings.TrimPrefix(callerPrefix, separator) + separator + key
}

// Segment is the log group part of the prefix.
func Segment(logGroupName string) string {
	return strings.ReplaceAll(strings.TrimPrefix(logGroupName, separator), separator, "-")
}

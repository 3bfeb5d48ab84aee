// Package analytics derives meeting-level metrics from a finished analysis
// result: talk-time distribution, participation balance, topics, questions,
// decision points, activity over time, and an engagement score with
// recommendations.
//
// Compute is pure; it reads only the result it is given and never fails.
package analytics

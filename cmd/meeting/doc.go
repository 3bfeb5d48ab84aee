// Command meeting is the operator CLI for meetingintel.
//
// It runs the analysis pipeline in-process against local WAV files and reads
// the same history database the daemon writes, so "meeting history" lists
// analyses made by either. Subcommands:
//
//	analyze <file>   run the pipeline and print or export the result
//	stages           show the resolved stage order and analyzer health
//	history          list stored analyses
//	show <id>        print a stored analysis
//	export <id>      write a stored analysis as json, csv, txt, html or xlsx
//	calendar <id>    write follow-up suggestions as an iCalendar file
//	doctor           run readiness checks
//	config init|validate
package main

// Package logx provides a small structured logging facade over zerolog.
//
// Components hold a logx.Logger value; the Service owns the sinks
// (console, file) and can swap level/outputs at runtime without
// invalidating loggers already handed out.
package logx

// Package common contains the pieces shared by every dPhil package: the
// logger factory plugged into the dragonboat logging facade and the helpers
// to configure it.
//
// Every package declares its own logger once:
//
//	var Logger = logger.GetLogger("table")
//
// and InitLoggers sets the level for all of them. Because dragonboat hands out
// wrapped loggers, the factory installed by InitLoggers also applies to loggers
// that were created before it was called.
package common

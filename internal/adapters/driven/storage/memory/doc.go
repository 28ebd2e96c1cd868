// Package memory provides in-process implementations of the vector index,
// session store and config store. Nothing survives a restart.
package memory

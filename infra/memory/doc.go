// Package memory recycles the scratch buffers of the journal write path,
// which encodes one frame per committed instruction.
package memory

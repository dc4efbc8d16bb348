/*
go-orgtrack labels and tracks organoids in time-lapse microscopy.  Each
frame's per pixel probability map, as produced by a segmentation model, is
separated into individually labeled instances with a watershed, cleaned up,
and linked to the instances of the previous frame by solving a global
assignment problem, giving every organoid a persistent track ID.

A Pipeline runs the stages for a single image sequence.  Batch runs many
independent sequences in parallel.  The postprocess, tracker, export and
render subpackages can also be used on their own.

See example code and usage in the example subdirectory.
*/
package orgtrack

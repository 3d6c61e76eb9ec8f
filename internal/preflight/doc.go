// Package preflight provides readiness checks for the executables and
// filesystem paths beaconsync depends on.
//
// These checks run in two contexts:
//   - The align and batch commands call RunAll before touching any media so a
//     missing ffmpeg or unwritable work directory fails fast.
//   - The CLI "beaconsync status" command renders every check, including tool
//     versions, as a table.
package preflight

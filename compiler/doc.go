/*

Process of transformation

IR Text ->
	parse ->
Module (ir) ->
	opt.Collapse ->
Module without dispatch chains ->
	opt.SimplifyUnreachable ->
Module without branches into unreachable blocks ->
	format ->
IR Text

*/
package compiler

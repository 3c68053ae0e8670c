// Package bibaux builds BibTeX sub-libraries from LaTeX aux files.
//
// A reference database is read from one or more .bib files, the citation keys
// recorded in an .aux file (and the files it \@input's) are resolved against it,
// and the needed entries, their crossref parents and the @string macros they use
// are copied into a new database.
package bibaux

// BNF
// Database     ::= (Junk '@' Entry)*
// Entry        ::= Record
//               |  Comment
//               |  String
//               |  Preamble
// Comment      ::= "comment" Body                     -- ignored
// String       ::= "string" '{' Name '=' Value '}'
// Preamble     ::= "preamble" '{' Value '}'
// Record       ::= Type '{' Key ',' Field* '}'
//               |  Type '(' Key ',' Field* ')'
// Type         ::= Name
// Key          ::= [^,\s]*
// Field        ::= Name '=' Value ','?
// Name         ::= [^\s\"#%'(),={}]*
// Value        ::= Part ('#' Part)*
// Part         ::= [0-9]+
//               |  Name                                -- macro reference
//               |  '"' ([^"] | '{' .* '}')* '"'       -- (balanced)
//               |  '{' .* '}'                         -- (balanced)

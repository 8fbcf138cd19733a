/*
Package reflser serializes graphs of reflected objects into human-readable
documents, writing only what changed relative to an original object.

We implement:

1. A Registry of types. Each type has a stable type id and a list of
reflected fields, defined either with DefineType and a TypeBuilder, or
derived from struct tags with RegisterStruct.

2. Documents: ordered tables of sections, encoded as YAML, JSON or MsgPack.

3. A Serializer that writes objects into documents and reads them back,
including multi-object documents (WriteMultiple, ReadEntries).

4. Sidecar storage of bulky geometry next to documents.

5. Backups: every committed document can keep a previous version to recover
from an interrupted write.

# Technical Details

**Section keys.**
Each object is stored in a section keyed "<entityChain>.<typeId>". The entity
chain is one or more dot-separated segments; top-level objects of a
multi-object document have single-segment chains (the default is "0"). The
type id never contains a dot, so a key splits at its last dot. Lookup by
chain matches the whole chain, so "10" never matches "100.<type>".

**Nested objects.**
An object-valued field holds a nested table with a single section
"0.<typeId>". Nested objects are always written in full.

**Originals.**
Writing an object together with its original stores only the fields whose
values differ (floats and vectors compare with Options.Epsilon). If the
original was itself read from a repository document, the section also gets

	$original: [<repository-relative path>, <entity id>]

and reading the section starts from a copy of that original. References can
chain; cycles are an error.

**Attributes.**
Custom string attributes are stored as "$attr:<name>" keys. All keys starting
with "$" are reserved.

**Sidecars.**
Mesh and SkeletalMesh fields are stored outside of the document, by default
in "<dir>/<stem>_geo/<entityChain>.<field>.bin". A payload is only rewritten
when its bytes differ from the original's. Payloads are msgpack, prefixed
with a version byte.

**Backups.**
With backup enabled, a commit renames the previous document to
"<path>.bak", then writes the new one via a synced temporary file. A reader
that finds the document missing or unparseable restores it from the backup.
*/
package reflser

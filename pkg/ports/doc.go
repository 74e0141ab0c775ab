/*
Package ports defines the driven ports (interfaces) of the editor.

These interfaces decouple document sessions and the template catalog from
storage, so drafts and templates can live in memory, on disk or in Redis.

# Key Interfaces

  - DraftStore: persists snapshots of open documents.
  - TemplateSource / TemplateStore: read builtin templates, manage user templates.
  - DistributedLocker: coordinates access to one document across replicas.
*/
package ports

/*
Package ports defines the driven ports (interfaces) of the strand scheduler.

These interfaces decouple the core from its collaborators, so the driver can
be paired with any collector and the host with any report backend.

# Key Interfaces

  - Collector: the root-set operations the driver calls, plus the Collect trigger.
  - RootAuditor: optional introspection of a collector's root traffic.
  - ReportStore: persistence of run reports (memory, file, redis).
*/
package ports
